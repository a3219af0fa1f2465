package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService lawchat/internal/service ChatService

import (
	"context"
	"strings"

	"lawchat/internal/contextutil"
	"lawchat/internal/llm"
	"lawchat/internal/rag"
	"lawchat/internal/storage"
)

// AnswerEngine runs the RAG pipeline for one chat turn.
// This interface is defined from the service layer's perspective (consumer-first).
type AnswerEngine interface {
	Answer(ctx context.Context, req rag.AnswerRequest, forward func(chunk string) error) (rag.AnswerResult, error)
}

// TurnSink accepts finished turns for background persistence.
type TurnSink interface {
	Enqueue(turn storage.Turn)
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	UserID    string
	SessionID string
	Message   string `validate:"required"`
}

// ChatService provides chat, session, and history functionality.
type ChatService interface {
	// StreamChat answers a chat turn, forwarding fragments via callback,
	// and hands the finished turn to background persistence.
	StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) error
	// CreateSession starts a new chat session for the user.
	CreateSession(ctx context.Context, userID string) (*storage.Session, error)
	// ListSessions returns the user's sessions, newest first.
	ListSessions(ctx context.Context, userID string) ([]storage.Session, error)
	// History returns the user's turns in a session, newest first.
	History(ctx context.Context, userID, sessionID string) ([]storage.Turn, error)
}

// chatService implements ChatService.
type chatService struct {
	engine  AnswerEngine
	history storage.HistoryStore
	sink    TurnSink
}

// NewChatService creates a new ChatService.
func NewChatService(engine AnswerEngine, history storage.HistoryStore, sink TurnSink) ChatService {
	return &chatService{
		engine:  engine,
		history: history,
		sink:    sink,
	}
}

// StreamChat answers one chat turn.
//
// History loading failures degrade to an empty conversation context; the
// request proceeds. The finished turn is enqueued for background saving
// unless the answer is empty or an error sentinel.
func (s *chatService) StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) error {
	logger := contextutil.LoggerFromContext(ctx)

	// Business validation
	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	history := s.loadHistory(ctx, req.SessionID)

	result, err := s.engine.Answer(ctx, rag.AnswerRequest{
		Message: req.Message,
		History: history,
	}, callback)
	if err != nil {
		// Client gone mid-stream; nothing to persist for a half-delivered
		// answer.
		logger.WarnContext(ctx, "chat stream aborted", "error", err)
		return WrapError(err, "failed to stream answer")
	}

	if result.Text == "" || strings.HasPrefix(result.Text, rag.ErrorSentinelPrefix) {
		logger.WarnContext(ctx, "not saving chat turn", "empty", result.Text == "")
		return nil
	}

	s.sink.Enqueue(storage.Turn{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
		Response:  result.Text,
	})

	logger.InfoContext(ctx, "chat turn processed",
		"message_length", len(req.Message),
		"response_length", len(result.Text),
		"documents_used", len(result.Documents),
	)
	return nil
}

// loadHistory rebuilds the role-tagged conversation context for a session.
// Rebuilt from scratch every request; never cached.
func (s *chatService) loadHistory(ctx context.Context, sessionID string) []llm.Message {
	logger := contextutil.LoggerFromContext(ctx)

	if sessionID == "" {
		logger.DebugContext(ctx, "no session id provided, chat will have no context")
		return nil
	}

	turns, err := s.history.GetTurns(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load session history, proceeding without it",
			"session_id", sessionID, "error", err)
		return nil
	}

	messages := make([]llm.Message, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages,
			llm.Message{Role: "user", Content: turn.Message},
			llm.Message{Role: "assistant", Content: turn.Response},
		)
	}

	logger.InfoContext(ctx, "session history loaded", "session_id", sessionID, "turns", len(turns))
	return messages
}

// CreateSession starts a new chat session for the user.
func (s *chatService) CreateSession(ctx context.Context, userID string) (*storage.Session, error) {
	session, err := s.history.CreateSession(ctx, userID)
	if err != nil {
		return nil, WrapError(err, "failed to create session")
	}
	return session, nil
}

// ListSessions returns the user's sessions, newest first.
func (s *chatService) ListSessions(ctx context.Context, userID string) ([]storage.Session, error) {
	sessions, err := s.history.ListSessions(ctx, userID)
	if err != nil {
		return nil, WrapError(err, "failed to list sessions")
	}
	return sessions, nil
}

// History returns the user's turns in a session, newest first.
func (s *chatService) History(ctx context.Context, userID, sessionID string) ([]storage.Turn, error) {
	if sessionID == "" {
		return nil, &ValidationError{
			Field:   "session_id",
			Message: "cannot be empty",
		}
	}
	turns, err := s.history.ListHistory(ctx, userID, sessionID)
	if err != nil {
		return nil, WrapError(err, "failed to list history")
	}
	return turns, nil
}
