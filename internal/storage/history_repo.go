package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_store.go -package=mocks lawchat/internal/storage HistoryStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// HistoryStore defines the interface for session and turn persistence.
type HistoryStore interface {
	// CreateSession creates a new session for the user.
	CreateSession(ctx context.Context, userID string) (*Session, error)
	// ListSessions returns the user's sessions, newest first.
	ListSessions(ctx context.Context, userID string) ([]Session, error)
	// GetTurns returns all turns of a session, oldest first.
	// Used to rebuild the conversation context for a request.
	GetTurns(ctx context.Context, sessionID string) ([]Turn, error)
	// ListHistory returns a user's turns in a session, newest first.
	ListHistory(ctx context.Context, userID, sessionID string) ([]Turn, error)
	// SaveTurn persists a completed exchange.
	SaveTurn(ctx context.Context, turn *Turn) error
}

// HistoryRepo provides methods for session and turn operations.
// It implements the HistoryStore interface.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// CreateSession creates a new session for the user.
func (r *HistoryRepo) CreateSession(ctx context.Context, userID string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, created_at) VALUES (?, ?, ?)",
		session.ID, session.UserID, session.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ListSessions returns the user's sessions, newest first.
func (r *HistoryRepo) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, created_at FROM sessions WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sessions []Session
	for rows.Next() {
		var s Session
		var createdAtStr string
		if err := rows.Scan(&s.ID, &s.UserID, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// GetTurns returns all turns of a session, oldest first.
func (r *HistoryRepo) GetTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, message, response, timestamp
		 FROM chat_history WHERE session_id = ? ORDER BY timestamp ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanTurns(rows)
}

// ListHistory returns a user's turns in a session, newest first.
func (r *HistoryRepo) ListHistory(ctx context.Context, userID, sessionID string) ([]Turn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, message, response, timestamp
		 FROM chat_history WHERE user_id = ? AND session_id = ?
		 ORDER BY timestamp DESC, id DESC`,
		userID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanTurns(rows)
}

// SaveTurn persists a completed exchange.
func (r *HistoryRepo) SaveTurn(ctx context.Context, turn *Turn) error {
	var sessionID any
	if turn.SessionID != "" {
		sessionID = turn.SessionID
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, session_id, message, response, timestamp)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		turn.UserID, sessionID, turn.Message, turn.Response,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		turn.ID = id
	}
	return nil
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var turns []Turn
	for rows.Next() {
		var t Turn
		var sessionID sql.NullString
		var timestampStr string
		if err := rows.Scan(&t.ID, &t.UserID, &sessionID, &t.Message, &t.Response, &timestampStr); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.SessionID = sessionID.String
		ts, err := parseTimestamp(timestampStr)
		if err != nil {
			return nil, err
		}
		t.Timestamp = ts
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}
	return turns, nil
}

// parseTimestamp parses a SQLite DATETIME string.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	// SQLite might use a different format
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return t, nil
}
