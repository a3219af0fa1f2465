package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lawchat/internal/auth"
	"lawchat/internal/handlers"
	"lawchat/internal/metrics"
	"lawchat/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService service.ChatService
	DB          *sql.DB
	VectorStore handlers.CollectionChecker
	Collection  string
	Metrics     *metrics.Metrics
	JWTSecret   []byte
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)

	// Add CORS middleware
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	sessionHandler := handlers.NewSessionHandler(deps.ChatService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorStore, deps.Collection)

	// Unauthenticated surface
	r.Method(http.MethodGet, "/api/health", healthHandler)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Register API routes
	r.Route("/api/chat", func(r chi.Router) {
		r.Use(auth.Middleware(deps.JWTSecret))
		r.Method(http.MethodPost, "/", chatHandler)
		r.Post("/session", sessionHandler.Create)
		r.Get("/sessions", sessionHandler.List)
		r.Get("/history", sessionHandler.History)
	})

	return r
}
