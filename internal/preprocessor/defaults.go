package preprocessor

import (
	_ "embed"
	"fmt"

	"rgehrsitz/acrex/internal/rules"
)

//go:embed data/default_rules.yaml
var defaultRulesYAML []byte

// DefaultRules returns a fresh copy of the seven reference rules.
func DefaultRules() ([]*rules.Rule, error) {
	rs, err := ParseAndValidateRules(defaultRulesYAML, FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded default rules: %w", err)
	}
	return rs, nil
}

// LoadRules loads the rule file at path, or the embedded defaults when path
// is empty.
func LoadRules(path string) ([]*rules.Rule, error) {
	if path == "" {
		return DefaultRules()
	}
	return LoadRulesFile(path)
}
