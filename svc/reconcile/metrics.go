package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts processed webhook events.
type Metrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the reconciler collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Processor webhook events by type and outcome.",
		}, []string{"event_type", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billing",
			Subsystem: "webhook",
			Name:      "duration_seconds",
			Help:      "Webhook event handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
}

func (m *Metrics) observe(eventType string, outcome Outcome, seconds float64) {
	if m == nil {
		return
	}
	if !handled(eventType) {
		eventType = "other"
	}
	m.events.WithLabelValues(eventType, string(outcome)).Inc()
	m.duration.WithLabelValues(eventType).Observe(seconds)
}
