package scores

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// WriteCSV renders score tables as a CSV with a task_id column followed by
// one column per dimension (union of all tables, sorted). Unscored
// dimensions render as empty cells.
func WriteCSV(w io.Writer, tables []Table) error {
	dims := map[string]bool{}
	for _, t := range tables {
		for d := range t.Scores {
			dims[d] = true
		}
		for _, d := range t.Unscored {
			dims[d] = true
		}
	}
	header := make([]string, 0, len(dims)+1)
	header = append(header, "task_id")
	for d := range dims {
		header = append(header, d)
	}
	sort.Strings(header[1:])

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, t := range tables {
		row := make([]string, 0, len(header))
		row = append(row, t.TaskID)
		for _, d := range header[1:] {
			if score, ok := t.Scores[d]; ok {
				row = append(row, strconv.FormatFloat(score, 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", t.TaskID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
