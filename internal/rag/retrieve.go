package rag

import (
	"context"

	"lawchat/internal/contextutil"
)

// overFetchFactor is how many raw matches are requested per wanted result.
// The surplus absorbs losses to URL deduplication and missing payloads.
const overFetchFactor = 3

// retrieve embeds the query and fetches over-fetched nearest-neighbor
// candidates from the statute index.
//
// Any failure from the embedding service or the index degrades to an empty
// candidate list: the chat proceeds without retrieved context rather than
// failing the request.
func (e *Engine) retrieve(ctx context.Context, query string, limit int) []Candidate {
	logger := contextutil.LoggerFromContext(ctx)

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query, proceeding without context", "error", err)
		return nil
	}

	results, err := e.vectorStore.Search(ctx, e.collection, vector, limit*overFetchFactor)
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed, proceeding without context", "error", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{
			Document: documentFromMeta(r.Meta),
			Score:    r.Score,
		})
	}

	logger.InfoContext(ctx, "retrieved candidates", "query_length", len(query), "raw_results", len(candidates))
	return candidates
}

// documentFromMeta extracts the statute payload from a search result.
// Missing fields fall back to zero values; a missing year gets the
// DefaultYear sentinel so recency boosting treats it as old.
func documentFromMeta(meta map[string]any) Document {
	doc := Document{Year: DefaultYear}

	if url, ok := meta["url"].(string); ok {
		doc.URL = url
	}
	if title, ok := meta["title"].(string); ok {
		doc.Title = title
	}
	if content, ok := meta["content"].(string); ok {
		doc.Content = content
	}
	if docType, ok := meta["document_type"].(string); ok {
		doc.DocumentType = docType
	}
	if status, ok := meta["status"].(string); ok {
		doc.Status = status
	}
	switch year := meta["year"].(type) {
	case int64:
		doc.Year = int(year)
	case float64:
		doc.Year = int(year)
	}

	return doc
}
