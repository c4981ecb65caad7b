package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transition outcomes.
const (
	OutcomeApplied      = "applied"
	OutcomeUnchanged    = "unchanged"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeConflict     = "conflict"
	OutcomeRejected     = "rejected"
	OutcomeError        = "error"
)

// ReservationMetrics tracks request transitions and reserved stock drift.
type ReservationMetrics struct {
	transitions *prometheus.CounterVec
	retries     *prometheus.CounterVec
	drift       prometheus.Gauge
}

// NewReservationMetrics registers the reservation metrics on reg. A nil
// registerer yields a no-op recorder.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gudang_reservation_transitions_total",
		Help: "Item request transitions by operation and outcome.",
	}, []string{"operation", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gudang_reservation_retries_total",
		Help: "Transition attempts retried after a concurrency conflict.",
	}, []string{"operation"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gudang_reservation_drift_items",
		Help: "Inventory items whose reserved quantity disagrees with open requests.",
	})
	reg.MustRegister(transitions, retries, drift)
	return &ReservationMetrics{
		transitions: transitions,
		retries:     retries,
		drift:       drift,
	}
}

// ObserveTransition counts one finished transition.
func (m *ReservationMetrics) ObserveTransition(operation, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncRetry counts a retried attempt.
func (m *ReservationMetrics) IncRetry(operation string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

// SetDrift records how many items are out of balance.
func (m *ReservationMetrics) SetDrift(items int) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.Set(float64(items))
}
