package rag

import "lawchat/internal/llm"

// DefaultYear is the sentinel issuance year used when the index payload
// carries no year for a document.
const DefaultYear = 2000

// Document is a statute excerpt as stored in the vector index.
// The URL uniquely identifies a document within one retrieval result set
// after deduplication.
type Document struct {
	URL          string
	Title        string
	Content      string
	Year         int
	DocumentType string
	Status       string
}

// Candidate wraps a retrieved Document with its request-scoped ranking score.
// Score starts as the raw similarity score from the index and is rescaled
// in place by the relevance boosting pass.
type Candidate struct {
	Document
	Score float32
}

// AnswerRequest carries one chat turn through the pipeline.
type AnswerRequest struct {
	// Message is the user's current message.
	Message string
	// History is the role-tagged reconstruction of prior turns for this
	// session, oldest first. Rebuilt from scratch every request.
	History []llm.Message
}

// AnswerResult is the outcome of one streamed answer.
type AnswerResult struct {
	// Text is the accumulated full answer. When generation exhausted its
	// retries this is the in-band error sentinel instead.
	Text string
	// Documents are the statute excerpts that made it into the prompt
	// context (a prefix of the selection, bounded by the context budget).
	Documents []Candidate
}
