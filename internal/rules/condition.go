// internal/rules/condition.go

package rules

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	OperatorEqual              = "=="
	OperatorGreaterThan        = ">"
	OperatorGreaterThanOrEqual = ">="
	OperatorLessThan           = "<"
	OperatorLessThanOrEqual    = "<="
)

var SupportedOperators = []string{
	OperatorEqual,
	OperatorGreaterThan,
	OperatorGreaterThanOrEqual,
	OperatorLessThan,
	OperatorLessThanOrEqual,
}

// IsSupportedOperator reports whether op is one of SupportedOperators.
func IsSupportedOperator(op string) bool {
	for _, supported := range SupportedOperators {
		if op == supported {
			return true
		}
	}
	return false
}

// Condition compares the observed value of Fact against Value using Operator.
type Condition struct {
	Fact     string `json:"fact" yaml:"fact"`
	Operator string `json:"operator" yaml:"operator"`
	Value    Value  `json:"value" yaml:"value"`
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Fact, c.Operator, c.Value)
}

// conditionObject is the keyed form of a condition in rule files.
type conditionObject struct {
	Fact     string `json:"fact" yaml:"fact"`
	Operator string `json:"operator" yaml:"operator"`
	Value    Value  `json:"value" yaml:"value"`
}

// UnmarshalJSON accepts {"fact":..,"operator":..,"value":..} or the compact
// ["fact", "operator", value] triple.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var triple []json.RawMessage
	if err := json.Unmarshal(data, &triple); err == nil {
		if len(triple) != 3 {
			return fmt.Errorf("condition triple must have 3 elements, got %d", len(triple))
		}
		var cond Condition
		if err := json.Unmarshal(triple[0], &cond.Fact); err != nil {
			return fmt.Errorf("condition fact: %w", err)
		}
		if err := json.Unmarshal(triple[1], &cond.Operator); err != nil {
			return fmt.Errorf("condition operator: %w", err)
		}
		if err := json.Unmarshal(triple[2], &cond.Value); err != nil {
			return fmt.Errorf("condition value: %w", err)
		}
		*c = cond
		return nil
	}

	var obj conditionObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = Condition(obj)
	return nil
}

// UnmarshalYAML accepts the same two shapes as UnmarshalJSON.
func (c *Condition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		if len(node.Content) != 3 {
			return fmt.Errorf("line %d: condition triple must have 3 elements, got %d", node.Line, len(node.Content))
		}
		var cond Condition
		if err := node.Content[0].Decode(&cond.Fact); err != nil {
			return fmt.Errorf("line %d: condition fact: %w", node.Line, err)
		}
		if err := node.Content[1].Decode(&cond.Operator); err != nil {
			return fmt.Errorf("line %d: condition operator: %w", node.Line, err)
		}
		if err := node.Content[2].Decode(&cond.Value); err != nil {
			return fmt.Errorf("line %d: condition value: %w", node.Line, err)
		}
		*c = cond
		return nil
	}

	var obj conditionObject
	if err := node.Decode(&obj); err != nil {
		return err
	}
	*c = Condition(obj)
	return nil
}
