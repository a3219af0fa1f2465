package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters exposed at /metrics.
// A nil *Metrics is valid and records nothing, so tests and tools can run
// the engine without a registry.
type Metrics struct {
	registry *prometheus.Registry

	chatRequests       prometheus.Counter
	retrievalEmpty     prometheus.Counter
	selectionFallbacks prometheus.Counter
	streamRetries      prometheus.Counter
	streamExhausted    prometheus.Counter
	retrievalDuration  prometheus.Histogram
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lawchat_chat_requests_total",
			Help: "Chat turns processed by the RAG pipeline.",
		}),
		retrievalEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lawchat_retrieval_empty_total",
			Help: "Chat turns answered without document context (retrieval returned nothing or failed).",
		}),
		selectionFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lawchat_selection_fallbacks_total",
			Help: "Document selections that fell back to the heuristic boosted order.",
		}),
		streamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lawchat_stream_retries_total",
			Help: "Answer stream attempts retried after an upstream failure.",
		}),
		streamExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lawchat_stream_exhausted_total",
			Help: "Chat turns that exhausted all generation attempts and emitted a sentinel.",
		}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lawchat_retrieval_duration_seconds",
			Help:    "Time spent embedding the query and searching the vector index.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.chatRequests,
		m.retrievalEmpty,
		m.selectionFallbacks,
		m.streamRetries,
		m.streamExhausted,
		m.retrievalDuration,
	)
	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncChatRequest() {
	if m != nil {
		m.chatRequests.Inc()
	}
}

func (m *Metrics) IncRetrievalEmpty() {
	if m != nil {
		m.retrievalEmpty.Inc()
	}
}

func (m *Metrics) IncSelectionFallback() {
	if m != nil {
		m.selectionFallbacks.Inc()
	}
}

func (m *Metrics) IncStreamRetry() {
	if m != nil {
		m.streamRetries.Inc()
	}
}

func (m *Metrics) IncStreamExhausted() {
	if m != nil {
		m.streamExhausted.Inc()
	}
}

func (m *Metrics) ObserveRetrievalDuration(d time.Duration) {
	if m != nil {
		m.retrievalDuration.Observe(d.Seconds())
	}
}
