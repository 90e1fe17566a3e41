// runtime/runtime.go

package runtime

import (
	"time"

	"rgehrsitz/acrex/internal/preprocessor"
	"rgehrsitz/acrex/internal/rules"

	"github.com/rs/zerolog/log"
)

// DefaultRuleName identifies the fallback decision.
const DefaultRuleName = "No rule"

// DefaultAction is returned when no rule matches.
func DefaultAction() rules.Action {
	return rules.Action{
		Mode:     rules.ModeOff,
		FanSpeed: rules.FanLow,
		Setpoint: nil,
		Reason:   "No matching rule",
	}
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Action   rules.Action `json:"action"`
	Rule     string       `json:"rule"`
	Priority int          `json:"priority"`
	Matched  bool         `json:"matched"`
}

// Select returns the action and name of the highest-priority rule whose
// conditions all hold against facts. Rules of equal priority are tried in
// input order. When nothing matches it returns DefaultAction and
// DefaultRuleName. The caller's slice is not reordered.
func Select(facts rules.Facts, rs []*rules.Rule) (rules.Action, string) {
	d := firstMatch(facts, preprocessor.PrioritizeRules(rs))
	return d.Action, d.Rule
}

// Matches reports whether every condition of rule holds. A rule without
// conditions always matches.
func Matches(facts rules.Facts, rule *rules.Rule) bool {
	for _, cond := range rule.Conditions {
		if !EvaluateCondition(facts, cond) {
			return false
		}
	}
	return true
}

// firstMatch expects ordered to be sorted already. The returned action is a
// copy, so callers cannot reach into the rule set through Setpoint.
func firstMatch(facts rules.Facts, ordered []*rules.Rule) Decision {
	for _, rule := range ordered {
		if rule == nil {
			continue
		}
		if Matches(facts, rule) {
			return Decision{Action: rule.Action.Clone(), Rule: rule.Name, Priority: rule.Priority, Matched: true}
		}
	}
	return Decision{Action: DefaultAction(), Rule: DefaultRuleName}
}

// Observer receives every decision an Engine makes.
type Observer interface {
	ObserveDecision(d Decision, elapsed time.Duration)
}

// Engine holds a rule set ordered once at construction. It keeps no mutable
// state, so one Engine can serve concurrent callers.
type Engine struct {
	ordered  []*rules.Rule
	observer Observer
}

type Option func(*Engine)

// WithObserver reports every decision to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine orders a private copy of rs by descending priority.
func NewEngine(rs []*rules.Rule, opts ...Option) *Engine {
	e := &Engine{ordered: preprocessor.PrioritizeRules(rs)}
	for _, opt := range opts {
		opt(e)
	}
	log.Info().Int("rules", len(e.ordered)).Msg("Rule engine ready")
	return e
}

// Rules returns the rules in evaluation order.
func (e *Engine) Rules() []*rules.Rule {
	out := make([]*rules.Rule, len(e.ordered))
	copy(out, e.ordered)
	return out
}

// Decide evaluates facts against the engine's rules.
func (e *Engine) Decide(facts rules.Facts) Decision {
	start := time.Now()
	d := firstMatch(facts, e.ordered)
	elapsed := time.Since(start)

	log.Debug().
		Str("rule", d.Rule).
		Bool("matched", d.Matched).
		Str("mode", string(d.Action.Mode)).
		Str("fan", string(d.Action.FanSpeed)).
		Dur("elapsed", elapsed).
		Msg("Decision made")

	if e.observer != nil {
		e.observer.ObserveDecision(d, elapsed)
	}
	return d
}
