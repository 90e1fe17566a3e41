package metrics

import (
	"strings"
	"testing"
	"time"

	"rgehrsitz/acrex/internal/rules"
	"rgehrsitz/acrex/internal/runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewDecisionMetrics("acrex", registry)

	cool := runtime.Decision{Rule: "Hot (occupied) → cool", Matched: true, Action: rules.Action{Mode: rules.ModeCool}}
	m.ObserveDecision(cool, 3*time.Microsecond)
	m.ObserveDecision(cool, 5*time.Microsecond)
	m.ObserveDecision(runtime.Decision{Rule: runtime.DefaultRuleName, Action: runtime.DefaultAction()}, time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("Hot (occupied) → cool", "COOL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("No rule", "OFF")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.defaultsTotal))

	expected := `
# HELP acrex_default_decisions_total Total number of decisions where no rule matched
# TYPE acrex_default_decisions_total counter
acrex_default_decisions_total 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "acrex_default_decisions_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.decisionDuration))
}

func TestDecisionMetrics_WiredIntoEngine(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewDecisionMetrics("test", registry)

	engine := runtime.NewEngine([]*rules.Rule{{
		Name:       "Too cold → turn off",
		Priority:   85,
		Conditions: []rules.Condition{{Fact: "temperature", Operator: "<=", Value: rules.Number(22)}},
		Action:     rules.Action{Mode: rules.ModeOff, FanSpeed: rules.FanLow, Reason: "Already cold"},
	}}, runtime.WithObserver(m))

	engine.Decide(rules.Facts{"temperature": rules.Number(18)})
	engine.Decide(rules.Facts{"temperature": rules.Number(30)})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("Too cold → turn off", "OFF")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.defaultsTotal))
}

func TestNewDecisionMetrics_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewDecisionMetrics("acrex", registry)
	assert.Panics(t, func() { NewDecisionMetrics("acrex", registry) })
}
