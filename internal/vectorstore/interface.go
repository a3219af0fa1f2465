package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks lawchat/internal/vectorstore VectorStore

import "context"

// SearchResult represents a scored point returned by a similarity search.
// Meta carries the statute document payload (url, title, content, year,
// document_type, status).
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the read-path interface to the statute vector index.
// The index is populated and maintained by external ingestion tooling; this
// service never writes to it.
type VectorStore interface {
	// Search performs a similarity search and returns up to limit results
	// ordered by descending similarity.
	Search(ctx context.Context, collection string, query []float32, limit int) ([]SearchResult, error)

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
