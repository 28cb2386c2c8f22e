// Package scores flattens evaluation payloads into numeric score tables and
// aggregates them into per-dimension and overall statistics.
package scores

import (
	"encoding/json"
	"sort"

	"github.com/elmes-ai/elmes/internal/models"
)

// Table maps dimension names to numeric scores. Dimensions whose value
// shape was unrecognized are listed in Unscored instead of silently
// dropped.
type Table struct {
	TaskID   string
	Scores   map[string]float64
	Unscored []string
}

// Flatten builds a score table from an evaluation record. It never fails:
// per field, the first matching shape wins —
//
//  1. a numeric value scores directly;
//  2. a mapping with a numeric "score" member (a comment may ride along)
//     scores from that member;
//  3. any other mapping is a category: recurse, flattening children to
//     "category.child";
//  4. anything else is recorded as unscored.
//
// A record with a parse failure (or no payload) yields an empty table with
// a single unscored marker so the failure stays visible downstream.
func Flatten(rec *models.EvalRecord) Table {
	t := Table{TaskID: rec.TaskID, Scores: map[string]float64{}}
	if rec.ParseFailure || rec.Payload == nil {
		t.Unscored = append(t.Unscored, "(unparsed)")
		return t
	}
	flattenInto(&t, "", rec.Payload)
	sort.Strings(t.Unscored)
	return t
}

func flattenInto(t *Table, prefix string, payload map[string]any) {
	for key, value := range payload {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		if n, ok := asNumber(value); ok {
			t.Scores[name] = n
			continue
		}

		if m, ok := value.(map[string]any); ok {
			if n, ok := asNumber(m["score"]); ok {
				t.Scores[name] = n
				continue
			}
			// An empty object is neither a score nor a category; it must
			// still surface instead of vanishing.
			if len(m) == 0 {
				t.Unscored = append(t.Unscored, name)
				continue
			}
			flattenInto(t, name, m)
			continue
		}

		t.Unscored = append(t.Unscored, name)
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// DimensionStats summarizes one dimension across tasks.
type DimensionStats struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Statistics is the aggregate over a set of score tables.
type Statistics struct {
	PerDimension map[string]DimensionStats `json:"per_dimension"`
	// OverallMean is the mean of per-task totals.
	OverallMean float64 `json:"overall_mean"`
	// TaskTotals holds each task's total score, in input order.
	TaskTotals []float64 `json:"task_totals"`
	// UnscoredCount counts dimensions that could not be scored, across all
	// tables.
	UnscoredCount int `json:"unscored_count"`
}

// Aggregate merges score tables after all tasks have completed. Dimension
// order is not significant; Dimensions() reports them sorted.
func Aggregate(tables []Table) Statistics {
	stats := Statistics{PerDimension: map[string]DimensionStats{}}

	for _, t := range tables {
		total := 0.0
		for dim, score := range t.Scores {
			total += score
			ds, seen := stats.PerDimension[dim]
			if !seen {
				ds = DimensionStats{Min: score, Max: score}
			}
			ds.Count++
			ds.Sum += score
			if score < ds.Min {
				ds.Min = score
			}
			if score > ds.Max {
				ds.Max = score
			}
			stats.PerDimension[dim] = ds
		}
		stats.TaskTotals = append(stats.TaskTotals, total)
		stats.UnscoredCount += len(t.Unscored)
	}

	for dim, ds := range stats.PerDimension {
		ds.Mean = ds.Sum / float64(ds.Count)
		stats.PerDimension[dim] = ds
	}

	if len(stats.TaskTotals) > 0 {
		sum := 0.0
		for _, v := range stats.TaskTotals {
			sum += v
		}
		stats.OverallMean = sum / float64(len(stats.TaskTotals))
	}

	return stats
}

// Dimensions returns the dimension names sorted for stable output.
func (s Statistics) Dimensions() []string {
	dims := make([]string, 0, len(s.PerDimension))
	for d := range s.PerDimension {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}
