package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lawchat/internal/config"
	"lawchat/internal/http"
	"lawchat/internal/llm"
	"lawchat/internal/metrics"
	"lawchat/internal/rag"
	"lawchat/internal/service"
	"lawchat/internal/storage"
	"lawchat/internal/vectorstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level: level,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", level.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	historyRepo := storage.NewHistoryRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store. The statute collection is built by
	// external ingestion tooling; the API only reads it, so a missing
	// collection is fatal.
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	info, err := vectorStore.GetCollectionInfo(ctx, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to read Qdrant collection %q: %v", cfg.QdrantCollection, err)
	}
	slog.Info("Qdrant collection ready",
		"collection", cfg.QdrantCollection,
		"points", info.PointsCount,
	)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
	testVector, err := embedder.EmbedQuery(ctx, "xin chào")
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testVector) != cfg.EmbeddingVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(testVector))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingVectorSize)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTimeout)

	m := metrics.New()

	// Create RAG engine
	ragEngine := rag.NewEngine(embedder, vectorStore, cfg.QdrantCollection, llmClient, rag.Options{
		RetrieveLimit:   cfg.RetrieveLimit,
		ContextBudget:   cfg.ContextBudget,
		DocContentLimit: cfg.DocContentLimit,
		StreamConfig: &rag.StreamConfig{
			Attempts:      cfg.StreamAttempts,
			BaseDelay:     cfg.StreamBaseDelay,
			BufferedRetry: cfg.StreamBufferedRetry,
		},
		Metrics: m,
	})
	slog.Info("RAG engine initialized")

	// Background persistence for finished chat turns
	saveQueue := storage.NewSaveQueue(historyRepo, 256)

	chatService := service.NewChatService(ragEngine, historyRepo, saveQueue)

	// Create router with dependencies
	deps := &http.Deps{
		ChatService: chatService,
		DB:          db,
		VectorStore: vectorStore,
		Collection:  cfg.QdrantCollection,
		Metrics:     m,
		JWTSecret:   []byte(cfg.JWTSecret),
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start API server
	go func() {
		slog.Info("Starting API server", "addr", addr)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	// Drain pending chat turn writes before closing the database.
	saveQueue.Close()
	slog.Info("Shutdown complete")
}
