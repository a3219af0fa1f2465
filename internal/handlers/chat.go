package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"lawchat/internal/auth"
	"lawchat/internal/contextutil"
	"lawchat/internal/service"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP streams a chat answer as plain text.
//
// Fragments are flushed to the client as they arrive from the pipeline.
// Generation-stage failures arrive as in-band sentinel text, never as an
// HTTP error: once the first fragment is written the status is committed.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	logger.InfoContext(ctx, "chat request",
		"user_id", userID,
		"session_id", req.SessionID,
		"message_length", len(req.Message),
	)

	wrote := false
	err := h.chatService.StreamChat(ctx, service.ChatRequest{
		UserID:    userID,
		SessionID: req.SessionID,
		Message:   req.Message,
	}, func(chunk string) error {
		if _, werr := fmt.Fprint(w, chunk); werr != nil {
			return werr
		}
		wrote = true
		flusher.Flush()
		return nil
	})

	if err != nil {
		if !wrote {
			// Nothing streamed yet; a conventional error response is
			// still possible.
			h.handlePreStreamError(w, r, err)
			return
		}
		logger.ErrorContext(ctx, "chat stream ended with error", "error", err)
	}
}

// handlePreStreamError maps service errors to HTTP status codes. Only valid
// before the first fragment is written.
func (h *ChatHandler) handlePreStreamError(w http.ResponseWriter, r *http.Request, err error) {
	logger := contextutil.LoggerFromContext(r.Context())
	logger.ErrorContext(r.Context(), "chat request failed before streaming", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, service.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	writeError(w, http.StatusInternalServerError, "Failed to process chat request")
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
