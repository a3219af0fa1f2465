package storage

import "time"

// Session represents one chat session owned by a user.
type Session struct {
	ID        string // UUID
	UserID    string // Opaque identity from the auth collaborator
	CreatedAt time.Time
}

// Turn represents one completed user/assistant exchange.
type Turn struct {
	ID        int64
	UserID    string
	SessionID string // Empty for sessionless chats
	Message   string
	Response  string
	Timestamp time.Time
}
