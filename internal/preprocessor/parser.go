package preprocessor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"rgehrsitz/acrex/internal/rules"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a rule file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension. Anything that is not
// .json is read as YAML, which also accepts JSON documents.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ruleFile is the document shape of a rule file. A bare list of rules is
// accepted as well.
type ruleFile struct {
	Rules []*rules.Rule `json:"rules" yaml:"rules"`
}

// ParseRules decodes rules without validating them.
func ParseRules(data []byte, format Format) ([]*rules.Rule, error) {
	log.Info().Str("format", string(format)).Msg("Started parsing rules...")

	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported rule format %q", format)
	}
}

func parseJSON(data []byte) ([]*rules.Rule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*rules.Rule
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules JSON: %w", err)
		}
		return list, nil
	}
	var doc ruleFile
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules JSON: %w", err)
	}
	return doc.Rules, nil
}

func parseYAML(data []byte) ([]*rules.Rule, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	if root.Content[0].Kind == yaml.SequenceNode {
		var list []*rules.Rule
		if err := root.Content[0].Decode(&list); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules YAML: %w", err)
		}
		return list, nil
	}
	var doc ruleFile
	if err := root.Content[0].Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules YAML: %w", err)
	}
	return doc.Rules, nil
}

// Problem is one validation failure. Condition is -1 when the problem is not
// tied to a single condition.
type Problem struct {
	Rule      string
	Index     int
	Condition int
	Message   string
}

func (p Problem) String() string {
	if p.Condition >= 0 {
		return fmt.Sprintf("rule %d (%q) condition %d: %s", p.Index, p.Rule, p.Condition, p.Message)
	}
	return fmt.Sprintf("rule %d (%q): %s", p.Index, p.Rule, p.Message)
}

// ValidationError lists every problem found in a rule set.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("%d invalid rule definition(s): %s", len(e.Problems), strings.Join(msgs, "; "))
}

// ValidateRules checks every rule and returns a *ValidationError listing all
// problems, or nil.
func ValidateRules(rs []*rules.Rule) error {
	log.Info().Int("rules", len(rs)).Msg("Started validating rules...")

	var problems []Problem
	for i, rule := range rs {
		problems = append(problems, validateRule(i, rule)...)
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateRule(index int, rule *rules.Rule) []Problem {
	if rule == nil {
		return []Problem{{Index: index, Condition: -1, Message: "rule is empty"}}
	}

	var problems []Problem
	add := func(cond int, format string, args ...interface{}) {
		problems = append(problems, Problem{Rule: rule.Name, Index: index, Condition: cond, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(rule.Name) == "" {
		add(-1, "rule name cannot be empty")
	}
	if len(rule.Conditions) == 0 {
		add(-1, "rule must have at least one condition")
	}
	for i, cond := range rule.Conditions {
		if msg := validateCondition(cond); msg != "" {
			add(i, "%s", msg)
		}
	}
	if !rule.Action.Mode.Valid() {
		add(-1, "invalid ac_mode %q", rule.Action.Mode)
	}
	if !rule.Action.FanSpeed.Valid() {
		add(-1, "invalid fan_speed %q", rule.Action.FanSpeed)
	}
	if rule.Action.Mode == rules.ModeOff && rule.Action.Setpoint != nil {
		add(-1, "setpoint must be absent when ac_mode is OFF")
	}
	if strings.TrimSpace(rule.Action.Reason) == "" {
		add(-1, "reason cannot be empty")
	}
	return problems
}

func validateCondition(cond rules.Condition) string {
	if cond.Fact == "" {
		return "missing 'fact'"
	}
	if !rules.IsSupportedOperator(cond.Operator) {
		return fmt.Sprintf("invalid operator '%s'", cond.Operator)
	}
	if !cond.Value.IsValid() {
		return "missing 'value'"
	}
	if v := cond.Value; v.Kind() == rules.KindNumber && (math.IsInf(v.Num(), 0) || math.IsNaN(v.Num())) {
		return fmt.Sprintf("value must be a finite number, got %v", v.Num())
	}
	if cond.Operator != rules.OperatorEqual && cond.Value.Kind() != rules.KindNumber {
		return fmt.Sprintf("expected numeric value for operator '%s', got %s", cond.Operator, cond.Value.Kind())
	}
	return ""
}

// ParseAndValidateRules decodes and validates a rule set.
func ParseAndValidateRules(data []byte, format Format) ([]*rules.Rule, error) {
	parsed, err := ParseRules(data, format)
	if err != nil {
		return nil, err
	}
	if err := ValidateRules(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

// LoadRulesFile reads, parses and validates the rule file at path.
func LoadRulesFile(path string) ([]*rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}
	rs, err := ParseAndValidateRules(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("rules file %q: %w", path, err)
	}
	log.Info().Str("path", path).Int("rules", len(rs)).Msg("Loaded rules")
	return rs, nil
}

// ValidationProblems returns the problems carried by a *ValidationError in
// err's chain, or nil when there is none.
func ValidationProblems(err error) []Problem {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Problems
	}
	return nil
}
