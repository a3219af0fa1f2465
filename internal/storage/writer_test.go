package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeHistoryStore records saved turns for queue tests.
type fakeHistoryStore struct {
	mu      sync.Mutex
	saved   []Turn
	saveErr error
}

func (f *fakeHistoryStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHistoryStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHistoryStore) GetTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHistoryStore) ListHistory(ctx context.Context, userID, sessionID string) ([]Turn, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHistoryStore) SaveTurn(ctx context.Context, turn *Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *turn)
	return nil
}

func (f *fakeHistoryStore) savedTurns() []Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Turn, len(f.saved))
	copy(out, f.saved)
	return out
}

func TestSaveQueueDrainsOnClose(t *testing.T) {
	store := &fakeHistoryStore{}
	q := NewSaveQueue(store, 8)

	for i := 0; i < 5; i++ {
		q.Enqueue(Turn{UserID: "user-1", Message: "m", Response: "r"})
	}
	q.Close()

	if got := len(store.savedTurns()); got != 5 {
		t.Fatalf("expected 5 turns drained, got %d", got)
	}
}

func TestSaveQueueFailureDoesNotStopWorker(t *testing.T) {
	store := &fakeHistoryStore{saveErr: errors.New("disk full")}
	q := NewSaveQueue(store, 8)

	q.Enqueue(Turn{UserID: "user-1", Message: "m", Response: "r"})
	q.Close()

	// Failure is logged and dropped; Close must still return.
	if got := len(store.savedTurns()); got != 0 {
		t.Fatalf("expected no saved turns, got %d", got)
	}
}

func TestSaveQueueCloseIdempotent(t *testing.T) {
	q := NewSaveQueue(&fakeHistoryStore{}, 2)
	q.Close()
	q.Close()
}
