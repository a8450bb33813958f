package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid json untouched", `{"name": "Aspirin", "synonym": []}`, `{"name": "Aspirin", "synonym": []}`},
		{"missing opening quote", `{name": "Aspirin"}`, `{"name": "Aspirin"}`},
		{"missing quote after comma", `{"name": "x", synonym": []}`, `{"name": "x", "synonym": []}`},
		{"underscore key", "{\n  trade_names\": []}", "{\n  \"trade_names\": []}"},
		{"trailing comma in array", `{"a": [1, 2,]}`, `{"a": [1, 2]}`},
		{"trailing comma in object", "{\"a\": 1,\n}", "{\"a\": 1\n}"},
		{"commas inside strings", `{"t": "a,}", "u": "b\",]"}`, `{"t": "a,}", "u": "b\",]"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.True(t, json.Valid([]byte(got)), "repaired output must parse: %s", got)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1} `))
}

func TestScrubText(t *testing.T) {
	in := "Kopfschmerzen\x00 und\tFieber  \n\n\n\nZweiter Absatz\x07\n"
	assert.Equal(t, "Kopfschmerzen und\tFieber\n\nZweiter Absatz", scrubText(in))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Grü", truncate("Grüße", 3))
	assert.Equal(t, "Grüße", truncate("Grüße", 0))
	assert.Equal(t, "Grüße", truncate("Grüße", 10))
}
