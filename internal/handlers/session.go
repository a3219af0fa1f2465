package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"lawchat/internal/auth"
	"lawchat/internal/contextutil"
	"lawchat/internal/service"
	"lawchat/internal/storage"
)

// SessionHandler handles HTTP requests for chat sessions and history.
type SessionHandler struct {
	chatService service.ChatService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(chatService service.ChatService) *SessionHandler {
	return &SessionHandler{
		chatService: chatService,
	}
}

// SessionResponse represents a chat session in HTTP responses.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

// TurnResponse represents one saved chat turn in HTTP responses.
type TurnResponse struct {
	Message   string `json:"message"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// Create starts a new chat session for the authenticated user.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	session, err := h.chatService.CreateSession(ctx, userID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	logger.InfoContext(ctx, "session created", "user_id", userID, "session_id", session.ID)
	writeJSON(w, http.StatusCreated, sessionResponse(*session))
}

// List returns the authenticated user's sessions, newest first.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	sessions, err := h.chatService.ListSessions(ctx, userID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": resp})
}

// History returns the user's turns in a session, newest first.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	turns, err := h.chatService.History(ctx, userID, sessionID)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		logger.ErrorContext(ctx, "failed to list history", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}

	resp := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		resp = append(resp, TurnResponse{
			Message:   t.Message,
			Response:  t.Response,
			Timestamp: t.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": resp})
}

func sessionResponse(s storage.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.ID,
		CreatedAt: s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
