package scores

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTextScores(t *testing.T) {
	text := `Overall a decent lesson.

clarity: 4
depth of explanation: 3.5
engagement: 5

The student stayed on topic throughout.`

	got := ParseTextScores(text)
	assert.Equal(t, map[string]float64{
		"clarity":              4,
		"depth of explanation": 3.5,
		"engagement":           5,
	}, got)
}

func TestParseTextScores_FullWidthColon(t *testing.T) {
	got := ParseTextScores("清晰度：4\n准确性：5")
	assert.Equal(t, map[string]float64{"清晰度": 4, "准确性": 5}, got)
}

func TestParseTextScores_IgnoresNonScoreLines(t *testing.T) {
	text := `Summary: the lesson went well overall
clarity: 4
see notes at http://example.com:8080/report`

	got := ParseTextScores(text)
	assert.Equal(t, map[string]float64{"clarity": 4}, got)
}

func TestParseTextScores_Empty(t *testing.T) {
	assert.Empty(t, ParseTextScores(""))
	assert.Empty(t, ParseTextScores("no scores anywhere"))
}
