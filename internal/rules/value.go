// internal/rules/value.go

package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tags the dynamic type held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNumber
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a fact value or a condition target. The zero Value is invalid and
// never compares equal to anything, itself included.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }
func (v Value) Num() float64  { return v.num }
func (v Value) Str() string   { return v.str }
func (v Value) BoolVal() bool { return v.b }

// Interface returns the Go value held, or nil for an invalid Value.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// FromInterface converts a decoded JSON/YAML scalar into a Value.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// ParseValue infers a Value from free text: booleans and numbers are
// recognized, anything else is kept as a string.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "true" || s == "false" {
		return Bool(s == "true")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return String(s)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*v = Value{}
		return nil
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!null":
		*v = Value{}
		return nil
	case "!!str":
		*v = String(node.Value)
		return nil
	}
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

// Facts maps fact names to observed values. Callers own it.
type Facts map[string]Value

// FactsFromMap converts decoded JSON/YAML into Facts.
func FactsFromMap(m map[string]interface{}) (Facts, error) {
	facts := make(Facts, len(m))
	for name, raw := range m {
		v, err := FromInterface(raw)
		if err != nil {
			return nil, fmt.Errorf("fact %q: %w", name, err)
		}
		facts[name] = v
	}
	return facts, nil
}
