package scores

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	tables := []Table{
		{TaskID: "task-000", Scores: map[string]float64{"clarity": 4, "depth": 2.5}},
		{TaskID: "task-001", Scores: map[string]float64{"clarity": 3}, Unscored: []string{"depth"}},
	}

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, tables))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "task_id,clarity,depth", lines[0])
	assert.Equal(t, "task-000,4,2.5", lines[1])
	// Unscored dimension renders as an empty cell.
	assert.Equal(t, "task-001,3,", lines[2])
}

func TestWriteCSV_NoTables(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, nil))
	assert.Equal(t, "task_id\n", sb.String())
}
