package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// saveTimeout bounds each background write so a wedged database cannot
// stall the drain on shutdown.
const saveTimeout = 5 * time.Second

// SaveQueue persists finished chat turns in the background.
//
// Turns are handed off through a buffered channel to a single worker, so
// the visible end of an answer stream is never delayed by the write.
// Failures are logged and dropped; they must not affect the client-visible
// response, which has already completed. Close drains pending writes.
type SaveQueue struct {
	store  HistoryStore
	ch     chan Turn
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewSaveQueue creates a queue with the given buffer size and starts its
// worker.
func NewSaveQueue(store HistoryStore, size int) *SaveQueue {
	if size <= 0 {
		size = 64
	}
	q := &SaveQueue{
		store:  store,
		ch:     make(chan Turn, size),
		logger: slog.Default(),
	}

	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue hands a finished turn to the background worker. It never blocks:
// if the buffer is full the turn is dropped with a log entry, matching the
// logged-and-dropped contract for persistence failures.
func (q *SaveQueue) Enqueue(turn Turn) {
	select {
	case q.ch <- turn:
	default:
		q.logger.Error("save queue full, dropping turn",
			"user_id", turn.UserID,
			"session_id", turn.SessionID,
		)
	}
}

// Close stops accepting turns and blocks until pending writes are drained.
func (q *SaveQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.ch)
	})
	q.wg.Wait()
}

func (q *SaveQueue) run() {
	defer q.wg.Done()

	for turn := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := q.store.SaveTurn(ctx, &turn)
		cancel()

		if err != nil {
			q.logger.Error("failed to save chat turn",
				"user_id", turn.UserID,
				"session_id", turn.SessionID,
				"error", err,
			)
			continue
		}
		q.logger.Debug("chat turn saved",
			"user_id", turn.UserID,
			"session_id", turn.SessionID,
			"message_length", len(turn.Message),
		)
	}
}
