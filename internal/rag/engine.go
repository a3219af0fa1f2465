package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_clients.go -package=mocks lawchat/internal/rag Embedder,Generator,Searcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lawchat/internal/contextutil"
	"lawchat/internal/llm"
	"lawchat/internal/metrics"
	"lawchat/internal/vectorstore"
)

// systemPrompt frames every answer. The assembled statute context, when
// present, is appended as a second system message.
const systemPrompt = "Bạn là chatbot luật giao thông Việt Nam, cập nhật đến đầu 2026. " +
	"Chỉ trả lời chính xác câu hỏi theo luật hiện hành, không suy đoán. "

// citationInstruction is appended to the context message so the model only
// cites documents that actually made it into the prompt.
const citationInstruction = "\nKhi trích dẫn, chỉ sử dụng các tài liệu trong danh sách trên. " +
	"Không tự bịa nguồn."

// Embedder computes query embeddings.
// Defined from the engine's perspective (consumer-first).
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Generator is the generative model service: one non-streaming call shape
// for document selection and one streaming shape for answer generation.
type Generator interface {
	Chat(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	StreamChat(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// Searcher is the read path of the statute vector index.
type Searcher interface {
	Search(ctx context.Context, collection string, query []float32, limit int) ([]vectorstore.SearchResult, error)
}

// Engine runs the retrieval-augmentation-generation pipeline for one chat
// turn: rewrite, retrieve, boost, select, assemble, stream.
type Engine struct {
	embedder    Embedder
	vectorStore Searcher
	collection  string
	generator   Generator

	retrieveLimit   int
	boostCfg        BoostConfig
	streamCfg       StreamConfig
	contextBudget   int
	docContentLimit int

	metrics *metrics.Metrics
	sleep   func(time.Duration)
}

// Options tunes an Engine. Zero values select production defaults.
type Options struct {
	RetrieveLimit   int
	BoostConfig     *BoostConfig
	StreamConfig    *StreamConfig
	ContextBudget   int
	DocContentLimit int
	Metrics         *metrics.Metrics
}

// NewEngine creates a pipeline engine. All collaborators are injected;
// the engine holds no process-global state.
func NewEngine(embedder Embedder, vectorStore Searcher, collection string, generator Generator, opts Options) *Engine {
	e := &Engine{
		embedder:        embedder,
		vectorStore:     vectorStore,
		collection:      collection,
		generator:       generator,
		retrieveLimit:   opts.RetrieveLimit,
		boostCfg:        DefaultBoostConfig(time.Now().Year()),
		streamCfg:       DefaultStreamConfig(),
		contextBudget:   opts.ContextBudget,
		docContentLimit: opts.DocContentLimit,
		metrics:         opts.Metrics,
		sleep:           time.Sleep,
	}

	if e.retrieveLimit <= 0 {
		e.retrieveLimit = 10
	}
	if e.contextBudget <= 0 {
		e.contextBudget = 4000
	}
	if e.docContentLimit <= 0 {
		e.docContentLimit = 1000
	}
	if opts.BoostConfig != nil {
		e.boostCfg = *opts.BoostConfig
	}
	if opts.StreamConfig != nil {
		e.streamCfg = *opts.StreamConfig
	}

	return e
}

// Answer runs one chat turn through the pipeline, forwarding answer
// fragments to the callback as they arrive.
//
// Retrieval and selection failures degrade silently (empty context,
// heuristic fallback); only a client write failure is returned as an error.
func (e *Engine) Answer(ctx context.Context, req AnswerRequest, forward func(chunk string) error) (AnswerResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	e.metrics.IncChatRequest()

	query := rewriteQuery(req.Message, req.History)
	if query != req.Message {
		logger.InfoContext(ctx, "vague follow-up detected, searching with previous question",
			"message_length", len(req.Message))
	}

	start := time.Now()
	candidates := e.retrieve(ctx, query, e.retrieveLimit)
	e.metrics.ObserveRetrievalDuration(time.Since(start))

	var contextBlock string
	var included []Candidate

	if len(candidates) == 0 {
		// No context found: skip selection entirely, answer from the
		// conversation alone.
		logger.InfoContext(ctx, "no candidates retrieved, answering without document context")
		e.metrics.IncRetrievalEmpty()
	} else {
		ranked := rankCandidates(candidates, query, e.retrieveLimit, e.boostCfg)
		logTopCandidates(ctx, logger, ranked)

		selected := e.selectDocuments(ctx, query, ranked)
		contextBlock, included = assembleContext(selected, e.contextBudget, e.docContentLimit)
		logger.InfoContext(ctx, "context assembled",
			"selected", len(selected),
			"included", len(included),
			"context_length", len(contextBlock),
		)
	}

	messages := make([]llm.Message, 0, len(req.History)+3)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	if contextBlock != "" {
		messages = append(messages, llm.Message{Role: "system", Content: contextBlock + citationInstruction})
	}
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})

	text, err := e.generateAnswer(ctx, messages, forward)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("answer stream aborted: %w", err)
	}

	logger.InfoContext(ctx, "answer completed",
		"answer_length", len(text),
		"documents_used", len(included),
		"sentinel", strings.HasPrefix(text, ErrorSentinelPrefix),
	)

	return AnswerResult{Text: text, Documents: included}, nil
}

// logTopCandidates records the post-boost ranking head for retrieval tuning.
func logTopCandidates(ctx context.Context, logger *slog.Logger, ranked []Candidate) {
	n := len(ranked)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		logger.DebugContext(ctx, "ranked candidate",
			"rank", i+1,
			"year", ranked[i].Year,
			"score", ranked[i].Score,
			"title", truncateRunes(ranked[i].Title, summaryTitleRunes),
		)
	}
}
