package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, Bool(true), ParseValue("true"))
	assert.Equal(t, Bool(false), ParseValue(" false "))
	assert.Equal(t, Number(31), ParseValue("31"))
	assert.Equal(t, Number(22.5), ParseValue("22.5"))
	assert.Equal(t, String("OCCUPIED"), ParseValue("OCCUPIED"))
	assert.Equal(t, String("TRUE"), ParseValue("TRUE"), "only lower-case literals are booleans")
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(25)
	require.NoError(t, err)
	assert.Equal(t, KindNumber, v.Kind())
	assert.Equal(t, 25.0, v.Num())

	v, err = FromInterface(json.Number("70"))
	require.NoError(t, err)
	assert.Equal(t, Number(70), v)

	_, err = FromInterface([]string{"a"})
	assert.Error(t, err)

	_, err = FromInterface(nil)
	assert.Error(t, err)
}

func TestValueJSON(t *testing.T) {
	var facts map[string]Value
	err := json.Unmarshal([]byte(`{"temperature": 31, "occupancy": "OCCUPIED", "windows_open": false, "missing": null}`), &facts)
	require.NoError(t, err)

	assert.Equal(t, Number(31), facts["temperature"])
	assert.Equal(t, String("OCCUPIED"), facts["occupancy"])
	assert.Equal(t, Bool(false), facts["windows_open"])
	assert.False(t, facts["missing"].IsValid())

	out, err := json.Marshal(Number(23))
	require.NoError(t, err)
	assert.JSONEq(t, `23`, string(out))

	var v Value
	assert.Error(t, json.Unmarshal([]byte(`{"nested": 1}`), &v))
}

func TestValueYAML(t *testing.T) {
	var facts map[string]Value
	err := yaml.Unmarshal([]byte("temperature: 25\nhumidity: 62.5\noccupancy: EMPTY\nwindows_open: true\nlabel: \"30\"\n"), &facts)
	require.NoError(t, err)

	assert.Equal(t, Number(25), facts["temperature"])
	assert.Equal(t, Number(62.5), facts["humidity"])
	assert.Equal(t, String("EMPTY"), facts["occupancy"])
	assert.Equal(t, Bool(true), facts["windows_open"])
	assert.Equal(t, String("30"), facts["label"], "quoted scalars stay strings")

	var v Value
	assert.Error(t, yaml.Unmarshal([]byte("[1, 2]"), &v))
}

func TestFactsFromMap(t *testing.T) {
	facts, err := FactsFromMap(map[string]interface{}{"temperature": 20.0, "occupancy": "EMPTY"})
	require.NoError(t, err)
	assert.Equal(t, Facts{"temperature": Number(20), "occupancy": String("EMPTY")}, facts)

	_, err = FactsFromMap(map[string]interface{}{"bad": map[string]interface{}{}})
	assert.ErrorContains(t, err, `fact "bad"`)
}
