package preprocessor

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"rgehrsitz/acrex/internal/rules"
)

// OptimizeRules returns a new slice holding the rules in evaluation order with
// duplicate conditions removed. Rules are copied, never modified in place.
func OptimizeRules(validatedRules []*rules.Rule) []*rules.Rule {
	return simplifyConditions(PrioritizeRules(validatedRules))
}

// PrioritizeRules returns a copy of rs sorted by descending priority. Rules
// with equal priority keep their input order, so sorting twice is a no-op.
// Nil entries sort last.
func PrioritizeRules(rs []*rules.Rule) []*rules.Rule {
	prioritizedRules := make([]*rules.Rule, len(rs))
	copy(prioritizedRules, rs)

	sort.SliceStable(prioritizedRules, func(i, j int) bool {
		ri, rj := prioritizedRules[i], prioritizedRules[j]
		if ri == nil || rj == nil {
			return ri != nil && rj == nil
		}
		return ri.Priority > rj.Priority
	})

	return prioritizedRules
}

// simplifyConditions drops exact duplicate conditions. Conditions are ANDed,
// so a repeat never changes whether a rule matches.
func simplifyConditions(rulesToSimplify []*rules.Rule) []*rules.Rule {
	simplifiedRules := make([]*rules.Rule, 0, len(rulesToSimplify))
	for _, rule := range rulesToSimplify {
		if rule == nil {
			continue
		}
		deduped := dedupConditions(rule.Conditions)
		if len(deduped) == len(rule.Conditions) {
			simplifiedRules = append(simplifiedRules, rule)
			continue
		}
		simplifiedRule := *rule
		simplifiedRule.Conditions = deduped
		simplifiedRules = append(simplifiedRules, &simplifiedRule)
	}
	return simplifiedRules
}

func dedupConditions(conditions []rules.Condition) []rules.Condition {
	deduped := make([]rules.Condition, 0, len(conditions))
	for _, cond := range conditions {
		if !containsCondition(deduped, cond) {
			deduped = append(deduped, cond)
		}
	}
	return deduped
}

func containsCondition(conditions []rules.Condition, condition rules.Condition) bool {
	for _, c := range conditions {
		if equalCondition(c, condition) {
			return true
		}
	}
	return false
}

func equalCondition(c1, c2 rules.Condition) bool {
	return c1.Fact == c2.Fact &&
		c1.Operator == c2.Operator &&
		c1.Value == c2.Value
}

// Shadow reports a rule that can never be selected because an earlier rule in
// evaluation order has the same set of conditions.
type Shadow struct {
	Rule     string
	Priority int
	By       string
}

// FindShadowedRules returns every shadowed rule in evaluation order.
func FindShadowedRules(rs []*rules.Rule) ([]Shadow, error) {
	seen := make(map[string]*rules.Rule)
	var shadows []Shadow
	for _, rule := range PrioritizeRules(rs) {
		if rule == nil {
			continue
		}
		key, err := conditionsKey(rule.Conditions)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		if earlier, found := seen[key]; found {
			shadows = append(shadows, Shadow{Rule: rule.Name, Priority: rule.Priority, By: earlier.Name})
			continue
		}
		seen[key] = rule
	}
	return shadows, nil
}

// conditionsKey generates a key that is equal for two condition lists holding
// the same conditions in any order.
func conditionsKey(conds []rules.Condition) (string, error) {
	normalized := sortConditions(dedupConditions(conds))

	serializedConditions, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("error marshaling conditions: %v", err)
	}

	hash := sha256.Sum256(serializedConditions)
	return fmt.Sprintf("%x", hash), nil
}

// sortConditions returns a sorted copy of conditions.
func sortConditions(conditions []rules.Condition) []rules.Condition {
	sorted := make([]rules.Condition, len(conditions))
	copy(sorted, conditions)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Fact != sorted[j].Fact {
			return sorted[i].Fact < sorted[j].Fact
		}
		if sorted[i].Operator != sorted[j].Operator {
			return sorted[i].Operator < sorted[j].Operator
		}
		return compareValues(sorted[i].Value, sorted[j].Value)
	})

	return sorted
}

// compareValues orders values by kind first, then by content.
func compareValues(v1, v2 rules.Value) bool {
	if v1.Kind() != v2.Kind() {
		return v1.Kind() < v2.Kind()
	}
	switch v1.Kind() {
	case rules.KindNumber:
		return v1.Num() < v2.Num()
	case rules.KindString:
		return v1.Str() < v2.Str()
	case rules.KindBool:
		// For booleans, false < true
		return !v1.BoolVal() && v2.BoolVal()
	default:
		return false
	}
}
