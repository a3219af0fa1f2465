package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"lawchat/internal/auth"
	"lawchat/internal/handlers"
	"lawchat/internal/service"
	"lawchat/internal/service/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func authedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	return r.WithContext(auth.WithUserID(r.Context(), "user-1"))
}

func TestChatHandlerStreamsAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		StreamChat(gomock.Any(), service.ChatRequest{
			UserID:    "user-1",
			SessionID: "sess-1",
			Message:   "Vượt đèn đỏ phạt bao nhiêu?",
		}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ service.ChatRequest, cb func(string) error) error {
			for _, chunk := range []string{"Theo ", "Nghị định 168/2024"} {
				if err := cb(chunk); err != nil {
					return err
				}
			}
			return nil
		})

	h := handlers.NewChatHandler(svc)
	req := authedRequest(http.MethodPost, "/api/chat",
		`{"message": "Vượt đèn đỏ phạt bao nhiêu?", "session_id": "sess-1"}`)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if got := rec.Body.String(); got != "Theo Nghị định 168/2024" {
		t.Fatalf("body = %q", got)
	}
}

func TestChatHandlerMissingIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := handlers.NewChatHandler(mocks.NewMockChatService(ctrl))
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "x"}`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChatHandlerInvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := handlers.NewChatHandler(mocks.NewMockChatService(ctrl))
	req := authedRequest(http.MethodPost, "/api/chat", "{not json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatHandlerValidationErrorBeforeStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		StreamChat(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&service.ValidationError{Field: "message", Message: "cannot be empty"})

	h := handlers.NewChatHandler(svc)
	req := authedRequest(http.MethodPost, "/api/chat", `{"message": ""}`)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "message") {
		t.Fatalf("error body must name the field, got %q", rec.Body.String())
	}
}

func TestChatHandlerErrorAfterStreamKeepsStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockChatService(ctrl)
	svc.EXPECT().
		StreamChat(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ service.ChatRequest, cb func(string) error) error {
			_ = cb("một phần câu trả lời")
			return context.Canceled
		})

	h := handlers.NewChatHandler(svc)
	req := authedRequest(http.MethodPost, "/api/chat", `{"message": "hỏi"}`)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	// Status already committed; the partial body stands as-is.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "một phần câu trả lời" {
		t.Fatalf("body = %q", got)
	}
}

func TestChatHandlerMethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := handlers.NewChatHandler(mocks.NewMockChatService(ctrl))
	req := authedRequest(http.MethodGet, "/api/chat", "")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
