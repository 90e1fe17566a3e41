// runtime/evaluate.go

package runtime

import "rgehrsitz/acrex/internal/rules"

// Evaluate applies op to an observed fact value and a target. It never
// fails: an absent or invalid observation, operands of different kinds,
// ordering on non-numbers and unknown operators all yield false.
func Evaluate(observed rules.Value, op string, target rules.Value) bool {
	if !observed.IsValid() || !target.IsValid() {
		return false
	}
	if observed.Kind() != target.Kind() {
		return false
	}

	switch op {
	case rules.OperatorEqual:
		return equal(observed, target)
	case rules.OperatorGreaterThanOrEqual:
		return ordered(observed, target, func(a, b float64) bool { return a >= b })
	case rules.OperatorLessThanOrEqual:
		return ordered(observed, target, func(a, b float64) bool { return a <= b })
	case rules.OperatorLessThan:
		return ordered(observed, target, func(a, b float64) bool { return a < b })
	case rules.OperatorGreaterThan:
		return ordered(observed, target, func(a, b float64) bool { return a > b })
	default:
		return false
	}
}

// EvaluateCondition looks the condition's fact up in facts and evaluates it.
func EvaluateCondition(facts rules.Facts, cond rules.Condition) bool {
	observed, ok := facts[cond.Fact]
	if !ok {
		return false
	}
	return Evaluate(observed, cond.Operator, cond.Value)
}

func equal(a, b rules.Value) bool {
	switch a.Kind() {
	case rules.KindNumber:
		return a.Num() == b.Num()
	case rules.KindString:
		return a.Str() == b.Str()
	case rules.KindBool:
		return a.BoolVal() == b.BoolVal()
	default:
		return false
	}
}

// ordered compares numbers only. Strings are never ordered lexicographically
// and booleans have no False < True order; both compare false.
func ordered(a, b rules.Value, cmp func(a, b float64) bool) bool {
	if a.Kind() != rules.KindNumber {
		return false
	}
	return cmp(a.Num(), b.Num())
}
