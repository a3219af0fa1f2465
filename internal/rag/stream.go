package rag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"lawchat/internal/contextutil"
	"lawchat/internal/llm"
)

// ErrorSentinelPrefix marks an in-band failure message. A response starting
// with this prefix must never be persisted as a chat turn.
const ErrorSentinelPrefix = "\n\n[LỖI:"

// User-facing sentinel texts, written into the open answer stream when all
// generation attempts are exhausted. The stream is already committed at that
// point, so an HTTP error is not an option.
const (
	sentinelOverloaded = "\n\n[LỖI: Dịch vụ AI đang quá tải. Vui lòng thử lại sau ít phút.]\n" +
		"Hệ thống đang xử lý nhiều yêu cầu. Hãy thử lại sau 1-2 phút."
	sentinelQuota = "\n\n[LỖI: Đã vượt giới hạn API.]\n" +
		"Hệ thống đã hết hạn mức sử dụng. Vui lòng liên hệ quản trị viên."
	sentinelGenericFormat = "\n\n[LỖI: Không thể kết nối đến dịch vụ AI.]\n" +
		"Chi tiết: %s\nVui lòng thử lại sau hoặc liên hệ hỗ trợ."
)

// StreamConfig holds the retry policy of the answer stream.
type StreamConfig struct {
	// Attempts is the total attempt ceiling, including the first try.
	Attempts int
	// BaseDelay is the wait before the second attempt; it doubles after
	// each further failure.
	BaseDelay time.Duration
	// BufferedRetry trades time-to-first-byte for exactly-once delivery:
	// when set, each attempt's output is buffered and forwarded only after
	// the attempt succeeds. The default forwards fragments immediately,
	// accepting that a failed attempt may leave a duplicate prefix in the
	// client's stream before the retried attempt replays the answer.
	BufferedRetry bool
}

// DefaultStreamConfig returns the production retry policy.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Attempts:  3,
		BaseDelay: time.Second,
	}
}

// clientWriteError wraps a failure to forward a fragment to the caller.
// It is terminal: the client is gone, retrying upstream helps nobody.
type clientWriteError struct {
	err error
}

func (e *clientWriteError) Error() string { return "client write failed: " + e.err.Error() }
func (e *clientWriteError) Unwrap() error { return e.err }

// generateAnswer opens the streaming generation call and forwards fragments
// to the caller as they arrive, accumulating the full text.
//
// On upstream failure the attempt's partial output is discarded (from the
// accumulator; fragments already forwarded cannot be recalled) and the call
// is retried from scratch with exponential backoff. After the attempt
// ceiling, a classified sentinel text is forwarded in-band and returned as
// the accumulated value.
//
// A forward error aborts immediately without retrying and without a
// sentinel; the error is returned so the caller can skip persistence.
func (e *Engine) generateAnswer(ctx context.Context, messages []llm.Message, forward func(chunk string) error) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	delay := e.streamCfg.BaseDelay
	var lastErr error

	for attempt := 0; attempt < e.streamCfg.Attempts; attempt++ {
		if attempt > 0 {
			e.metrics.IncStreamRetry()
			e.sleep(delay)
			delay *= 2
		}

		var accum strings.Builder

		// Per-attempt context so an abandoned upstream stream is released
		// when this attempt is done with it.
		attemptCtx, cancel := context.WithCancel(ctx)
		err := e.generator.StreamChat(attemptCtx, messages, llm.ChatParams{}, func(chunk string) error {
			accum.WriteString(chunk)
			if e.streamCfg.BufferedRetry {
				return nil
			}
			if werr := forward(chunk); werr != nil {
				return &clientWriteError{err: werr}
			}
			return nil
		})
		cancel()

		if err == nil {
			text := accum.String()
			if e.streamCfg.BufferedRetry {
				if werr := forward(text); werr != nil {
					return "", &clientWriteError{err: werr}
				}
			}
			return text, nil
		}

		var cwe *clientWriteError
		if errors.As(err, &cwe) {
			logger.WarnContext(ctx, "client disconnected mid-stream", "attempt", attempt+1, "error", cwe.err)
			return "", cwe
		}

		lastErr = err
		logger.ErrorContext(ctx, "generation stream failed",
			"attempt", attempt+1,
			"max_attempts", e.streamCfg.Attempts,
			"error", err,
		)
	}

	e.metrics.IncStreamExhausted()
	sentinel := classifyStreamError(lastErr)
	logger.ErrorContext(ctx, "generation retries exhausted, emitting sentinel", "error", lastErr)

	// Best effort: the client may already be gone.
	_ = forward(sentinel)
	return sentinel, nil
}

// classifyStreamError maps the last upstream error to a user-facing
// sentinel. Provider errors arrive as unstructured text, so matching is by
// known substrings, most specific first.
func classifyStreamError(err error) string {
	if err == nil {
		return genericSentinel("unknown")
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "overloaded"):
		return sentinelOverloaded
	case strings.Contains(msg, "quota"), strings.Contains(msg, "limit"):
		return sentinelQuota
	default:
		return genericSentinel(errorCategory(err))
	}
}

func genericSentinel(category string) string {
	return fmt.Sprintf(sentinelGenericFormat, category)
}

// errorCategory names the failure class without leaking provider internals
// into the user-visible message.
func errorCategory(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "connection_error"
	}
}
