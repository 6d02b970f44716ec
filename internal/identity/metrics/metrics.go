package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for identity resolution: embedding cache
// effectiveness, upstream latency and match outcomes.
type Metrics struct {
	EmbeddingCacheHits   prometheus.Counter
	EmbeddingCacheMisses prometheus.Counter
	EmbeddingDuration    prometheus.Histogram
	EmbeddingFailures    *prometheus.CounterVec
	BreakerOpened        prometheus.Counter
	ShiftsResolved       *prometheus.CounterVec
	ResolveBatchDuration prometheus.Histogram
}

// New creates and registers identity metrics.
func New() *Metrics {
	return &Metrics{
		EmbeddingCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_embedding_cache_hits_total",
			Help: "Name embeddings served from the shared cache",
		}),
		EmbeddingCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_embedding_cache_misses_total",
			Help: "Name embeddings fetched from the provider",
		}),
		EmbeddingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rostersync_embedding_request_duration_seconds",
			Help:    "Duration of embedding provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		EmbeddingFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rostersync_embedding_failures_total",
			Help: "Embedding provider failures by category",
		}, []string{"category"}),
		BreakerOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_embedding_breaker_opened_total",
			Help: "Times the embedding circuit breaker opened",
		}),
		ShiftsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rostersync_shifts_resolved_total",
			Help: "Shifts resolved by outcome (matched, alias, unmatched)",
		}, []string{"outcome"}),
		ResolveBatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rostersync_resolve_batch_duration_seconds",
			Help:    "Duration of resolving one roster's shifts",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

func (m *Metrics) IncrementCacheHit() {
	m.EmbeddingCacheHits.Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	m.EmbeddingCacheMisses.Inc()
}

// ObserveEmbedding records the duration of one provider call.
func (m *Metrics) ObserveEmbedding(start time.Time) {
	m.EmbeddingDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementEmbeddingFailure(category string) {
	m.EmbeddingFailures.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementBreakerOpened() {
	m.BreakerOpened.Inc()
}

func (m *Metrics) IncrementResolved(outcome string) {
	m.ShiftsResolved.WithLabelValues(outcome).Inc()
}

// ObserveResolveBatch records the duration of a batch. Call with time.Now() at the start.
func (m *Metrics) ObserveResolveBatch(start time.Time) {
	m.ResolveBatchDuration.Observe(time.Since(start).Seconds())
}
