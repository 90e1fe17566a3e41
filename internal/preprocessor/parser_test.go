package preprocessor

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"rgehrsitz/acrex/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules_ValidJSONDocument(t *testing.T) {
	rulesJSON := `{
        "rules": [
            {
                "name": "Too cold → turn off",
                "priority": 85,
                "conditions": [["temperature", "<=", 22]],
                "action": {"ac_mode": "OFF", "fan_speed": "LOW", "setpoint": null, "reason": "Already cold"}
            }
        ]
    }`

	rs, err := ParseAndValidateRules([]byte(rulesJSON), FormatJSON)
	require.NoError(t, err, "Unexpected error")
	require.Len(t, rs, 1)
	assert.Equal(t, "Too cold → turn off", rs[0].Name)
	assert.Equal(t, 85, rs[0].Priority)
	assert.Equal(t, rules.Condition{Fact: "temperature", Operator: "<=", Value: rules.Number(22)}, rs[0].Conditions[0])
	assert.Nil(t, rs[0].Action.Setpoint)
}

func TestParseRules_ValidJSONList(t *testing.T) {
	rulesJSON := `[
        {
            "name": "Hot (occupied) → cool",
            "priority": 70,
            "conditions": [
                {"fact": "occupancy", "operator": "==", "value": "OCCUPIED"},
                {"fact": "temperature", "operator": ">=", "value": 28}
            ],
            "action": {"ac_mode": "COOL", "fan_speed": "MEDIUM", "setpoint": 24, "reason": "Temperature high"}
        }
    ]`

	rs, err := ParseAndValidateRules([]byte(rulesJSON), FormatJSON)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Len(t, rs[0].Conditions, 2)
	assert.Equal(t, 24.0, *rs[0].Action.Setpoint)
}

func TestParseRules_YAMLList(t *testing.T) {
	rulesYAML := `
- name: Night (occupied) → sleep mode
  priority: 75
  conditions:
    - [occupancy, "==", OCCUPIED]
    - [time_of_day, "==", NIGHT]
    - [temperature, ">=", 26]
  action: {ac_mode: SLEEP, fan_speed: LOW, setpoint: 26, reason: Night comfort}
`
	rs, err := ParseAndValidateRules([]byte(rulesYAML), FormatYAML)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, rules.ModeSleep, rs[0].Action.Mode)
	assert.Equal(t, rules.String("NIGHT"), rs[0].Conditions[1].Value)
}

func TestParseRules_YAMLAcceptsJSON(t *testing.T) {
	rs, err := ParseRules([]byte(`{"rules": [{"name": "x", "priority": 1, "conditions": [["a", "==", 1]], "action": {"ac_mode": "ECO", "fan_speed": "LOW", "setpoint": 27, "reason": "r"}}]}`), FormatYAML)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, rules.Number(1), rs[0].Conditions[0].Value)
}

func TestParseRules_EmptyYAML(t *testing.T) {
	rs, err := ParseRules([]byte(""), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestParseRules_InvalidJSON(t *testing.T) {
	_, err := ParseRules([]byte(`{"rules": [{"name": "x", "priority": "high"}]}`), FormatJSON)
	assert.Error(t, err)
}

func TestParseRules_UnsupportedFormat(t *testing.T) {
	_, err := ParseRules([]byte(`[]`), Format("toml"))
	assert.ErrorContains(t, err, "unsupported rule format")
}

func TestValidateRules_Problems(t *testing.T) {
	testCases := []struct {
		name    string
		rule    *rules.Rule
		message string
	}{
		{
			name:    "unknown operator",
			rule:    validRule(func(r *rules.Rule) { r.Conditions[0].Operator = "!=" }),
			message: "invalid operator '!='",
		},
		{
			name:    "missing fact",
			rule:    validRule(func(r *rules.Rule) { r.Conditions[0].Fact = "" }),
			message: "missing 'fact'",
		},
		{
			name:    "missing value",
			rule:    validRule(func(r *rules.Rule) { r.Conditions[0].Value = rules.Value{} }),
			message: "missing 'value'",
		},
		{
			name:    "ordering on a category",
			rule:    validRule(func(r *rules.Rule) { r.Conditions[0].Value = rules.String("WARM") }),
			message: "expected numeric value for operator '>='",
		},
		{
			name:    "infinite target",
			rule:    validRule(func(r *rules.Rule) { r.Conditions[0].Value = rules.Number(math.Inf(1)) }),
			message: "value must be a finite number, got +Inf",
		},
		{
			name:    "NaN target",
			rule:    validRule(func(r *rules.Rule) { r.Conditions[0].Value = rules.Number(math.NaN()) }),
			message: "value must be a finite number, got NaN",
		},
		{
			name:    "no conditions",
			rule:    validRule(func(r *rules.Rule) { r.Conditions = nil }),
			message: "at least one condition",
		},
		{
			name:    "no name",
			rule:    validRule(func(r *rules.Rule) { r.Name = " " }),
			message: "rule name cannot be empty",
		},
		{
			name:    "bad mode",
			rule:    validRule(func(r *rules.Rule) { r.Action.Mode = "HEAT" }),
			message: `invalid ac_mode "HEAT"`,
		},
		{
			name:    "bad fan",
			rule:    validRule(func(r *rules.Rule) { r.Action.FanSpeed = "" }),
			message: `invalid fan_speed ""`,
		},
		{
			name:    "setpoint with OFF",
			rule:    validRule(func(r *rules.Rule) { r.Action.Mode = rules.ModeOff }),
			message: "setpoint must be absent",
		},
		{
			name:    "no reason",
			rule:    validRule(func(r *rules.Rule) { r.Action.Reason = "" }),
			message: "reason cannot be empty",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRules([]*rules.Rule{validRule(nil), tc.rule})
			require.Error(t, err)
			assert.Len(t, ValidationProblems(err), 1)
			assert.ErrorContains(t, err, tc.message)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Len(t, ve.Problems, 1)
			assert.Equal(t, 1, ve.Problems[0].Index)
		})
	}
}

func TestValidateRules_CollectsAllProblems(t *testing.T) {
	bad := &rules.Rule{
		Conditions: []rules.Condition{
			{Fact: "temperature", Operator: "=>", Value: rules.Number(1)},
			{Operator: "==", Value: rules.Bool(true)},
		},
	}

	err := ValidateRules([]*rules.Rule{bad, nil})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	// name, 2 conditions, mode, fan, reason, nil rule
	assert.Len(t, ve.Problems, 7)
	assert.Equal(t, 0, ve.Problems[1].Condition)
	assert.Equal(t, 1, ve.Problems[2].Condition)
	assert.Equal(t, "rule is empty", ve.Problems[6].Message)
}

func TestParseAndValidateRules_RejectsNonFiniteYAML(t *testing.T) {
	for _, target := range []string{".inf", "-.inf", ".nan"} {
		doc := "- name: bad\n  priority: 1\n  conditions: [[temperature, \"<\", " + target + "]]\n  action: {ac_mode: ECO, fan_speed: LOW, setpoint: 27, reason: r}\n"
		_, err := ParseAndValidateRules([]byte(doc), FormatYAML)
		assert.ErrorContains(t, err, "value must be a finite number", target)
	}
}

func TestValidateRules_Valid(t *testing.T) {
	assert.NoError(t, ValidateRules([]*rules.Rule{validRule(nil)}))
	assert.NoError(t, ValidateRules(nil))
}

func TestLoadRulesFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"name": "eco", "priority": 1, "conditions": [["occupancy", "==", "EMPTY"]], "action": {"ac_mode": "ECO", "fan_speed": "LOW", "setpoint": 27, "reason": "empty"}}]`), 0o644))
	rs, err := LoadRulesFile(jsonPath)
	require.NoError(t, err)
	assert.Len(t, rs, 1)

	yamlPath := filepath.Join(dir, "rules.yml")
	require.NoError(t, os.WriteFile(yamlPath, defaultRulesYAML, 0o644))
	rs, err = LoadRulesFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, rs, 7)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("- name: bad\n  priority: 1\n  conditions: [[t, '~=', 1]]\n  action: {ac_mode: OFF, fan_speed: LOW, reason: r}\n"), 0o644))
	_, err = LoadRulesFile(badPath)
	require.Len(t, ValidationProblems(err), 1)
	assert.Equal(t, "invalid operator '~='", ValidationProblems(err)[0].Message)
	assert.ErrorContains(t, err, badPath)

	_, err = LoadRulesFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read rules file")
	assert.Nil(t, ValidationProblems(err))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("rules.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("rules.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("rules"))
}

func validRule(mutate func(r *rules.Rule)) *rules.Rule {
	r := &rules.Rule{
		Name:       "Hot (occupied) → cool",
		Priority:   70,
		Conditions: []rules.Condition{{Fact: "temperature", Operator: ">=", Value: rules.Number(28)}},
		Action:     rules.Action{Mode: rules.ModeCool, FanSpeed: rules.FanMedium, Setpoint: rules.Setpoint(24), Reason: "Temperature high"},
	}
	if mutate != nil {
		mutate(r)
	}
	return r
}
