package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/yaml.v3"

	"github.com/elmes-ai/elmes/internal/models"
)

func TestGenerateConfig(t *testing.T) {
	spec := &ScenarioSpec{
		Name:       "math-tutoring",
		Backend:    "openai",
		Model:      "gpt-4o",
		Agents:     []string{"teacher", "student"},
		MaxTurns:   12,
		WithRubric: true,
	}

	result, err := GenerateConfig(spec)
	require.NoError(t, err)

	assert.Contains(t, result, "name: math-tutoring")
	assert.Contains(t, result, "type: openai")
	assert.Contains(t, result, "model: gpt-4o")
	assert.Contains(t, result, "max_turns: 12")
	assert.Contains(t, result, "START -> teacher")
	assert.Contains(t, result, "teacher -> student")
	assert.Contains(t, result, "student -> END")
	assert.Contains(t, result, "evaluation:")
	assert.Contains(t, result, "field: clarity")

	// The generated file must load as a valid scenario config.
	path := filepath.Join(t.TempDir(), "generated.yaml")
	require.NoError(t, os.WriteFile(path, []byte(result), 0o644))

	loaded, err := models.LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "math-tutoring", loaded.Name)
	assert.Equal(t, 12, loaded.Globals.MaxTurns)
	assert.Equal(t, models.BackendOpenAI, loaded.Models["openai_default"].Kind)
	require.Contains(t, loaded.Agents, "teacher")
	require.NotNil(t, loaded.Evaluation)
	assert.Equal(t, models.RubricInt, loaded.Evaluation.Format[0].Kind)
	assert.Equal(t, "{task}", loaded.Tasks.StartPrompt.Content)

	tasks, err := loaded.ExpandTasks()
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestGenerateConfig_NoRubric(t *testing.T) {
	spec := &ScenarioSpec{
		Name:     "plain",
		Backend:  "ollama",
		Model:    "llama3",
		Agents:   []string{"assistant"},
		MaxTurns: 5,
	}

	result, err := GenerateConfig(spec)
	require.NoError(t, err)

	assert.NotContains(t, result, "evaluation:")
	assert.Contains(t, result, "START -> assistant")
	assert.Contains(t, result, "assistant -> END")

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(result), &parsed))
}

func TestGenerateConfig_ThreeAgentChain(t *testing.T) {
	spec := &ScenarioSpec{
		Name:     "panel",
		Backend:  "deepseek",
		Model:    "deepseek-chat",
		Agents:   []string{"planner", "solver", "critic"},
		MaxTurns: 9,
	}

	result, err := GenerateConfig(spec)
	require.NoError(t, err)

	assert.Contains(t, result, "START -> planner")
	assert.Contains(t, result, "planner -> solver")
	assert.Contains(t, result, "solver -> critic")
	assert.Contains(t, result, "critic -> END")
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "teacher", []string{"teacher"}},
		{"multiple", "a, b, c", []string{"a", "b", "c"}},
		{"with blanks", "a,, b, ,c", []string{"a", "b", "c"}},
		{"whitespace only", "  ,  ,  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitAndTrim(tt.input))
		})
	}
}

func TestParsePositive(t *testing.T) {
	n, err := parsePositive(" 25 ")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	_, err = parsePositive("0")
	assert.Error(t, err)
	_, err = parsePositive("lots")
	assert.Error(t, err)
}
