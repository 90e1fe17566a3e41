// Package metrics exports decision metrics to Prometheus.
//
// Metrics:
//   - <ns>_decisions_total: decisions by rule and ac mode
//   - <ns>_default_decisions_total: decisions where no rule matched
//   - <ns>_decision_duration_seconds: time spent selecting a rule
package metrics

import (
	"time"

	"rgehrsitz/acrex/internal/runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics implements runtime.Observer.
type DecisionMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	defaultsTotal    prometheus.Counter
	decisionDuration prometheus.Histogram
}

var _ runtime.Observer = (*DecisionMetrics)(nil)

// NewDecisionMetrics creates the collectors and registers them with registry.
func NewDecisionMetrics(namespace string, registry prometheus.Registerer) *DecisionMetrics {
	m := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total number of decisions by selected rule and ac mode",
			},
			[]string{"rule", "mode"},
		),
		defaultsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "default_decisions_total",
				Help:      "Total number of decisions where no rule matched",
			},
		),
		decisionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decision_duration_seconds",
				Help:      "Duration of rule selection in seconds",
				// Selection is a short linear scan
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),
	}

	registry.MustRegister(m.decisionsTotal, m.defaultsTotal, m.decisionDuration)
	return m
}

// ObserveDecision records one decision.
func (m *DecisionMetrics) ObserveDecision(d runtime.Decision, elapsed time.Duration) {
	m.decisionsTotal.WithLabelValues(d.Rule, string(d.Action.Mode)).Inc()
	if !d.Matched {
		m.defaultsTotal.Inc()
	}
	m.decisionDuration.Observe(elapsed.Seconds())
}
