package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.IncChatRequest()
	m.IncRetrievalEmpty()
	m.IncSelectionFallback()
	m.IncStreamRetry()
	m.IncStreamExhausted()
	m.ObserveRetrievalDuration(time.Second)
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.IncChatRequest()
	m.IncChatRequest()
	m.IncSelectionFallback()
	m.ObserveRetrievalDuration(50 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "lawchat_chat_requests_total 2") {
		t.Errorf("missing chat request count:\n%s", body)
	}
	if !strings.Contains(body, "lawchat_selection_fallbacks_total 1") {
		t.Errorf("missing fallback count:\n%s", body)
	}
	if !strings.Contains(body, "lawchat_retrieval_duration_seconds_count 1") {
		t.Errorf("missing retrieval histogram:\n%s", body)
	}
}
