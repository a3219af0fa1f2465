package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"lawchat/internal/contextutil"
)

const healthCheckTimeout = 5 * time.Second

// CollectionChecker reports whether the law document collection is reachable.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// HealthHandler reports service health.
type HealthHandler struct {
	db         *sql.DB
	vectors    CollectionChecker
	collection string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB, vectors CollectionChecker, collection string) *HealthHandler {
	return &HealthHandler{
		db:         db,
		vectors:    vectors,
		collection: collection,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServeHTTP checks the database and the vector collection.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	logger := contextutil.LoggerFromContext(r.Context())

	checks := map[string]string{
		"database":   "ok",
		"collection": "ok",
	}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		logger.ErrorContext(ctx, "health check: database unreachable", "error", err)
		checks["database"] = err.Error()
		healthy = false
	}

	exists, err := h.vectors.CollectionExists(ctx, h.collection)
	switch {
	case err != nil:
		logger.ErrorContext(ctx, "health check: vector store unreachable", "error", err)
		checks["collection"] = err.Error()
		healthy = false
	case !exists:
		logger.ErrorContext(ctx, "health check: collection missing", "collection", h.collection)
		checks["collection"] = "collection not found"
		healthy = false
	}

	resp := HealthResponse{Status: "ok", Checks: checks}
	code := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
