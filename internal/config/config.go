package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string
	LLMTimeout   time.Duration

	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int

	QdrantURL        string
	QdrantCollection string

	DBPath    string
	JWTSecret string
	APIPort   string
	LogLevel  string
	LogFormat string

	// RetrieveLimit is the number of unique documents kept after
	// deduplication. The vector index is over-fetched at 3x this value.
	RetrieveLimit int

	// ContextBudget is the total character budget for the assembled
	// document context; DocContentLimit caps each document excerpt.
	ContextBudget   int
	DocContentLimit int

	StreamAttempts      int
	StreamBaseDelay     time.Duration
	StreamBufferedRetry bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.groq.com/openai"),
		LLMModelName: getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		// The embeddings server must serve the same model used to embed the
		// statute corpus, otherwise query vectors land in the wrong space.
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "keepitreal/vietnamese-sbert"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "traffic_laws_only"),
		DBPath:             getEnv("DB_PATH", "./data/lawchat.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		APIPort:            getEnv("API_PORT", "8000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// Parse EMBEDDING_VECTOR_SIZE
	// Note: This must match the output vector size of the embeddings model
	// and the Qdrant collection (768 for vietnamese-sbert). If the model
	// changes, the collection must be re-embedded by the ingestion tooling.
	vectorSizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingVectorSize = vectorSize

	cfg.RetrieveLimit, err = getEnvInt("RETRIEVE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	cfg.ContextBudget, err = getEnvInt("CONTEXT_BUDGET", 4000)
	if err != nil {
		return nil, err
	}
	cfg.DocContentLimit, err = getEnvInt("DOC_CONTENT_LIMIT", 1000)
	if err != nil {
		return nil, err
	}
	cfg.StreamAttempts, err = getEnvInt("STREAM_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	baseDelaySec, err := getEnvInt("STREAM_BASE_DELAY_SECONDS", 1)
	if err != nil {
		return nil, err
	}
	cfg.StreamBaseDelay = time.Duration(baseDelaySec) * time.Second

	timeoutSec, err := getEnvInt("LLM_TIMEOUT_SECONDS", 120)
	if err != nil {
		return nil, err
	}
	cfg.LLMTimeout = time.Duration(timeoutSec) * time.Second

	cfg.StreamBufferedRetry = getEnv("STREAM_BUFFERED_RETRY", "false") == "true"

	// Create ./data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
// Values must be positive.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}
