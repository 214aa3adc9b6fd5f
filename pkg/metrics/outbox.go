package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records publish outcomes for the outbox drain loop.
type OutboxMetrics struct {
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox event publishes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events published successfully.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox event publish attempts that failed.",
	}, []string{"event_type"})
	reg.MustRegister(duration, published, failed)
	return &OutboxMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
	}
}

// ObservePublish records a successful publish for the event type.
func (o *OutboxMetrics) ObservePublish(eventType string, elapsed time.Duration) {
	if o == nil || o.duration == nil {
		return
	}
	eventType = normalizeLabel(eventType)
	o.duration.WithLabelValues(eventType).Observe(elapsed.Seconds())
	o.published.WithLabelValues(eventType).Inc()
}

// IncFailure increments the failure counter for the event type.
func (o *OutboxMetrics) IncFailure(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}
