// Package metrics exposes Prometheus collectors for fit sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call kinds.
const (
	KindValue    = "value"
	KindGradient = "gradient"
)

// Operation outcomes.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics groups the collectors used by fit sessions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	objectiveCalls *prometheus.CounterVec
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg leaves them unregistered,
// which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		objectiveCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gominuit_objective_calls_total",
			Help: "Total objective function evaluations by kind",
		}, []string{"kind"}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gominuit_operations_total",
			Help: "Total session operations by outcome",
		}, []string{"op", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gominuit_operation_duration_seconds",
			Help:    "Session operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}, []string{"op"}),
	}
}

// ObjectiveCall counts one evaluation of the given kind.
func (m *Metrics) ObjectiveCall(kind string) {
	if m == nil {
		return
	}
	m.objectiveCalls.WithLabelValues(kind).Inc()
}

// Observe records one finished operation.
func (m *Metrics) Observe(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// Outcome maps an operation result onto an outcome label.
func Outcome(valid bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case valid:
		return OutcomeValid
	default:
		return OutcomeInvalid
	}
}
