package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStructured_StrictJSON(t *testing.T) {
	payload, err := ExtractStructured(`  {"clarity": 4, "comment": "good"}  `)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"clarity": float64(4), "comment": "good"}, payload)
}

func TestExtractStructured_FencedBlock(t *testing.T) {
	text := "Here is my evaluation:\n```json\n{\"clarity\": 5}\n```\nHope that helps."
	payload, err := ExtractStructured(text)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"clarity": float64(5)}, payload)

	// Bare fences without the json tag also work.
	payload, err = ExtractStructured("```\n{\"depth\": 3}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"depth": float64(3)}, payload)
}

func TestExtractStructured_BalancedScan(t *testing.T) {
	text := `After careful thought, I score it {"clarity": 4, "note": "uses } in text"} overall.`
	payload, err := ExtractStructured(text)
	require.NoError(t, err)
	assert.Equal(t, "uses } in text", payload["note"])
	assert.Equal(t, float64(4), payload["clarity"])
}

func TestExtractStructured_NestedObject(t *testing.T) {
	text := `Scores: {"content": {"accuracy": 5, "depth": 4}, "clarity": 3}`
	payload, err := ExtractStructured(text)
	require.NoError(t, err)

	nested, ok := payload["content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), nested["accuracy"])
}

func TestExtractStructured_EscapedQuotes(t *testing.T) {
	text := `{"comment": "she said \"done\" and stopped", "score": 2}`
	payload, err := ExtractStructured(text)
	require.NoError(t, err)
	assert.Equal(t, `she said "done" and stopped`, payload["comment"])
}

func TestExtractStructured_Failures(t *testing.T) {
	for _, text := range []string{
		"",
		"no json here at all",
		"an unclosed { brace",
		"[1, 2, 3]",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := ExtractStructured(text)
			assert.Error(t, err)
		})
	}
}
