package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recompute outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
	OutcomeRetryable = "retryable_error"
)

// Metrics exposes the engine's operational counters. A nil *Metrics is a
// valid no-op receiver so unit tests don't need a registry.
type Metrics struct {
	recomputeTotal    *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	scorerTimeouts    *prometheus.CounterVec
	outboxDeliveries  *prometheus.CounterVec
}

// NewMetrics registers and returns the engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		recomputeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscore",
			Name:      "recompute_total",
			Help:      "Recomputation attempts by outcome.",
		}, []string{"outcome"}),
		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadscore",
			Name:      "recompute_duration_seconds",
			Help:      "Wall time of successful recomputations.",
			Buckets:   prometheus.DefBuckets,
		}),
		scorerTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscore",
			Name:      "scorer_timeouts_total",
			Help:      "Factor scorers that exceeded their budget.",
		}, []string{"factor"}),
		outboxDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadscore",
			Name:      "outbox_deliveries_total",
			Help:      "lead.scored outbox delivery attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// RecomputeOutcome records one recomputation attempt.
func (m *Metrics) RecomputeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.recomputeTotal.WithLabelValues(outcome).Inc()
}

// RecomputeDuration records the wall time of a successful recomputation.
func (m *Metrics) RecomputeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.recomputeDuration.Observe(d.Seconds())
}

// ScorerTimeout records a factor scorer exceeding its budget.
func (m *Metrics) ScorerTimeout(factor string) {
	if m == nil {
		return
	}
	m.scorerTimeouts.WithLabelValues(factor).Inc()
}

// OutboxDelivery records one outbox delivery attempt.
func (m *Metrics) OutboxDelivery(outcome string) {
	if m == nil {
		return
	}
	m.outboxDeliveries.WithLabelValues(outcome).Inc()
}
