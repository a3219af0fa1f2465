package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"lawchat/internal/handlers"
	"lawchat/internal/service"
	"lawchat/internal/service/mocks"
	"lawchat/internal/storage"
)

func TestSessionHandlerCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		CreateSession(gomock.Any(), "user-1").
		Return(&storage.Session{
			ID:        "sess-abc",
			UserID:    "user-1",
			CreatedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		}, nil)

	h := handlers.NewSessionHandler(svc)
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/api/chat/session", ""))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp handlers.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.SessionID != "sess-abc" {
		t.Fatalf("session_id = %q", resp.SessionID)
	}
	if resp.CreatedAt != "2026-08-25 10:00:00" {
		t.Fatalf("created_at = %q", resp.CreatedAt)
	}
}

func TestSessionHandlerCreateUnauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := handlers.NewSessionHandler(mocks.NewMockChatService(ctrl))
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/chat/session", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionHandlerList(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		ListSessions(gomock.Any(), "user-1").
		Return([]storage.Session{{ID: "s2"}, {ID: "s1"}}, nil)

	h := handlers.NewSessionHandler(svc)
	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/chat/sessions", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Sessions []handlers.SessionResponse `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.Sessions) != 2 || resp.Sessions[0].SessionID != "s2" {
		t.Fatalf("unexpected sessions: %+v", resp.Sessions)
	}
}

func TestSessionHandlerHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		History(gomock.Any(), "user-1", "sess-1").
		Return([]storage.Turn{
			{Message: "hỏi", Response: "đáp", Timestamp: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)},
		}, nil)

	h := handlers.NewSessionHandler(svc)
	rec := httptest.NewRecorder()
	h.History(rec, authedRequest(http.MethodGet, "/api/chat/history?session_id=sess-1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		History []handlers.TurnResponse `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(resp.History) != 1 || resp.History[0].Message != "hỏi" {
		t.Fatalf("unexpected history: %+v", resp.History)
	}
}

func TestSessionHandlerHistoryMissingSessionID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		History(gomock.Any(), "user-1", "").
		Return(nil, &service.ValidationError{Field: "session_id", Message: "cannot be empty"})

	h := handlers.NewSessionHandler(svc)
	rec := httptest.NewRecorder()
	h.History(rec, authedRequest(http.MethodGet, "/api/chat/history", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionHandlerListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		ListSessions(gomock.Any(), "user-1").
		Return(nil, errors.New("db down"))

	h := handlers.NewSessionHandler(svc)
	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/chat/sessions", ""))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
