package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmes-ai/elmes/internal/models"
)

func sampleResult(taskID string, ts time.Time) *models.ResultFile {
	return &models.ResultFile{
		Scenario: "demo",
		TaskID:   taskID,
		Task:     map[string]string{"topic": "fractions"},
		Status:   models.StatusCompleted,
		Messages: []models.Message{
			{Role: "user", Content: "Explain fractions."},
			{Role: "teacher", Content: "Parts of a whole."},
		},
		Execution: models.ExecutionInfo{ModelName: "gpt-4o", Timestamp: ts, Turns: 1},
	}
}

func sampleEval(taskID string, ts time.Time) *models.EvalRecord {
	return &models.EvalRecord{
		TaskID:    taskID,
		Backend:   "openai",
		ModelName: "gpt-4o",
		Payload:   map[string]any{"clarity": 4.0},
		Timestamp: ts,
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	require.NoError(t, err)
	defer st.Close()

	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	loc1, err := st.SaveResult(sampleResult("task-000", ts))
	require.NoError(t, err)
	loc2, err := st.SaveResult(sampleResult("task-001", ts.Add(time.Second)))
	require.NoError(t, err)

	locations, err := st.ListResults()
	require.NoError(t, err)
	assert.Equal(t, []string{loc1, loc2}, locations)

	loaded, err := st.LoadResult(loc1)
	require.NoError(t, err)
	assert.Equal(t, "task-000", loaded.TaskID)
	assert.Equal(t, models.StatusCompleted, loaded.Status)

	evalLoc, err := st.SaveEval(sampleEval("task-000", ts))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "eval"), filepath.Dir(evalLoc))

	evalLocations, err := st.ListEvals()
	require.NoError(t, err)
	assert.Equal(t, []string{evalLoc}, evalLocations)

	rec, err := st.LoadEval(evalLoc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"clarity": 4.0}, rec.Payload)
}

func TestFileStore_EvalFilesInvisibleToResultListing(t *testing.T) {
	st, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	_, err = st.SaveEval(sampleEval("task-000", ts))
	require.NoError(t, err)

	locations, err := st.ListResults()
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestBoltStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elmes.db")
	st, err := OpenBolt(path)
	require.NoError(t, err)
	defer st.Close()

	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	loc, err := st.SaveResult(sampleResult("task-000", ts))
	require.NoError(t, err)
	assert.Contains(t, loc, "results/")

	locations, err := st.ListResults()
	require.NoError(t, err)
	assert.Equal(t, []string{loc}, locations)

	loaded, err := st.LoadResult(loc)
	require.NoError(t, err)
	assert.Equal(t, "task-000", loaded.TaskID)
	assert.Equal(t, "Parts of a whole.", loaded.FinalAnswer())

	evalLoc, err := st.SaveEval(sampleEval("task-000", ts))
	require.NoError(t, err)
	assert.Contains(t, evalLoc, "evaluations/")

	rec, err := st.LoadEval(evalLoc)
	require.NoError(t, err)
	assert.Equal(t, "task-000", rec.TaskID)

	_, err = st.LoadResult("results/missing.json")
	assert.Error(t, err)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elmes.db")
	st, err := OpenBolt(path)
	require.NoError(t, err)

	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	loc, err := st.SaveResult(sampleResult("task-000", ts))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := OpenBolt(path)
	require.NoError(t, err)
	defer st2.Close()

	loaded, err := st2.LoadResult(loc)
	require.NoError(t, err)
	assert.Equal(t, "task-000", loaded.TaskID)
}
