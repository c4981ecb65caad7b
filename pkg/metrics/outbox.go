package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay outcomes for a single outbox row.
const (
	DeliveryPublished = "published"
	DeliveryRetry     = "retry"
	DeliveryParked    = "parked"
)

// OutboxMetrics tracks the relay that drains outbox_events to Pub/Sub. A nil
// receiver records nothing.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	lag        prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gudang_outbox_deliveries_total",
			Help: "Outbox rows handled by the relay, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		lag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gudang_outbox_publish_lag_seconds",
			Help:    "Time between an outbox row being written and it reaching Pub/Sub.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.deliveries, m.lag)
	}
	return m
}

// ObserveDelivery counts one row. created is only used for published rows.
func (m *OutboxMetrics) ObserveDelivery(eventType, outcome string, created time.Time) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
	if outcome == DeliveryPublished && !created.IsZero() {
		m.lag.Observe(time.Since(created).Seconds())
	}
}
