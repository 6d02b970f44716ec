package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers roster ingestion outcomes and version diffs.
type Metrics struct {
	Ingestions       *prometheus.CounterVec
	IngestDuration   prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	VersionRetries   prometheus.Counter
	ShiftChanges     *prometheus.CounterVec
	UnmatchedShifts  prometheus.Counter
	DuplicateIngests prometheus.Counter
}

// New creates and registers roster metrics.
func New() *Metrics {
	return &Metrics{
		Ingestions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rostersync_ingestions_total",
			Help: "Roster ingestions by outcome",
		}, []string{"outcome"}),
		IngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rostersync_ingest_duration_seconds",
			Help:    "End to end roster ingestion duration",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rostersync_ingest_stage_duration_seconds",
			Help:    "Duration of each ingestion stage",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		VersionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_version_allocation_retries_total",
			Help: "Version allocations retried after losing a race",
		}),
		ShiftChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rostersync_shift_changes_total",
			Help: "Shifts classified by the version diff",
		}, []string{"change_type"}),
		UnmatchedShifts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_unmatched_shifts_total",
			Help: "Shifts stored without a resolved identity",
		}),
		DuplicateIngests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_duplicate_ingests_total",
			Help: "Ingestions whose content matched the latest version",
		}),
	}
}

func (m *Metrics) IncrementIngestion(outcome string) {
	m.Ingestions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveIngest(start time.Time) {
	m.IngestDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementVersionRetry() {
	m.VersionRetries.Inc()
}

func (m *Metrics) AddShiftChanges(changeType string, n int) {
	m.ShiftChanges.WithLabelValues(changeType).Add(float64(n))
}

func (m *Metrics) AddUnmatched(n int) {
	m.UnmatchedShifts.Add(float64(n))
}

func (m *Metrics) IncrementDuplicate() {
	m.DuplicateIngests.Inc()
}
