package transcript

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmes-ai/elmes/internal/models"
)

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 8, 23, 14, 30, 5, 42_000_000, time.UTC)

	got := Filename("math tutoring", "task-003", "gpt-4o", ts)
	assert.Equal(t, "20260823_143005042_Smathtutoring_Ttask-003_gpt-4o.json", got)
}

func TestFilename_SanitizesUnsafeNames(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Filename("a/b:c", "t?1", "org/model:v1", ts)
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, ":")
	assert.NotContains(t, got, "?")
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{9}_S.+_T.+_.+\.json$`), got)

	empty := Filename("", "", "", ts)
	assert.Contains(t, empty, "unnamed")
}

func TestWriteAndLoadResult(t *testing.T) {
	dir := t.TempDir()
	result := &models.ResultFile{
		Scenario: "demo",
		TaskID:   "task-000",
		Task:     map[string]string{"topic": "fractions"},
		Status:   models.StatusCompleted,
		Messages: []models.Message{
			{Role: "user", Content: "Explain fractions."},
			{Role: "teacher", Content: "A fraction is part of a whole.", Reasoning: "keep it simple"},
		},
		Execution: models.ExecutionInfo{
			Backend:   "openai",
			ModelName: "gpt-4o",
			Timestamp: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
			Turns:     1,
		},
	}

	path, err := WriteResult(dir, result)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	loaded, err := LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, result.TaskID, loaded.TaskID)
	assert.Equal(t, result.Status, loaded.Status)
	assert.Equal(t, result.Messages, loaded.Messages)
	assert.Equal(t, "keep it simple", loaded.Messages[1].Reasoning)
}

func TestWriteAndLoadEval(t *testing.T) {
	dir := t.TempDir()
	rec := &models.EvalRecord{
		OriginalFile: "/results/20260823_100000000_Sdemo_Ttask-000_gpt-4o.json",
		TaskID:       "task-000",
		Backend:      "openai",
		ModelName:    "gpt-4o",
		Payload:      map[string]any{"clarity": 4.0},
		Timestamp:    time.Date(2026, 8, 23, 11, 0, 0, 0, time.UTC),
	}

	path, err := WriteEval(dir, rec)
	require.NoError(t, err)
	assert.Equal(t, "eval_20260823_100000000_Sdemo_Ttask-000_gpt-4o.json", filepath.Base(path))

	loaded, err := LoadEval(path)
	require.NoError(t, err)
	assert.Equal(t, rec.TaskID, loaded.TaskID)
	assert.Equal(t, map[string]any{"clarity": 4.0}, loaded.Payload)
	assert.False(t, loaded.ParseFailure)
}

func TestWriteEval_NoOriginalFile(t *testing.T) {
	dir := t.TempDir()
	rec := &models.EvalRecord{TaskID: "task-007"}

	path, err := WriteEval(dir, rec)
	require.NoError(t, err)
	assert.Equal(t, "eval_task-007.json", filepath.Base(path))
}
