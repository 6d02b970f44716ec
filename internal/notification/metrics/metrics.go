package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers notification sweeps.
type Metrics struct {
	SweepDuration    prometheus.Histogram
	ChangesClaimed   prometheus.Counter
	ClaimsLost       prometheus.Counter
	ClaimsReleased   prometheus.Counter
	DispatchFailures *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
}

// New creates and registers notification metrics.
func New() *Metrics {
	return &Metrics{
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rostersync_notification_sweep_duration_seconds",
			Help:    "Duration of a notification sweep",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60},
		}),
		ChangesClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_notification_changes_claimed_total",
			Help: "Change records claimed by a sweep",
		}),
		ClaimsLost: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_notification_claims_lost_total",
			Help: "Change records already claimed by another sweep",
		}),
		ClaimsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rostersync_notification_claims_released_total",
			Help: "Claims given back after copy generation or delivery failed",
		}),
		DispatchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rostersync_notification_dispatch_failures_total",
			Help: "Delivery failures by channel",
		}, []string{"channel"}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rostersync_notifications_total",
			Help: "Notifications sent by delivery status",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveSweep(start time.Time) {
	m.SweepDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddClaimed(n int) {
	m.ChangesClaimed.Add(float64(n))
}

func (m *Metrics) IncrementClaimLost() {
	m.ClaimsLost.Inc()
}

func (m *Metrics) AddReleased(n int) {
	m.ClaimsReleased.Add(float64(n))
}

func (m *Metrics) IncrementDispatchFailure(channel string) {
	m.DispatchFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncrementNotification(status string) {
	m.Notifications.WithLabelValues(status).Inc()
}
