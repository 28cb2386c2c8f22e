package scores

import (
	"regexp"
	"strconv"
	"strings"
)

// Legacy evaluation replies sometimes carry scores as plain lines like
// "clarity: 4.5". This is the fallback for records that predate the
// structured contract.
var textScoreLine = regexp.MustCompile(`(?m)^\s*([\p{L}][\p{L}\p{N} ._-]*?)\s*[:：]\s*(\d+(?:\.\d+)?)\s*$`)

// ParseTextScores scans free text for "dimension: number" lines. Returns an
// empty map when nothing matches.
func ParseTextScores(text string) map[string]float64 {
	out := map[string]float64{}
	for _, m := range textScoreLine.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out[name] = score
	}
	return out
}
