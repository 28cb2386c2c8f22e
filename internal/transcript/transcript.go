// Package transcript writes per-task result files and per-transcript
// evaluation files.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/elmes-ai/elmes/internal/models"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Filename builds the result filename:
// <date>_<time+ms>_S<scenario>_T<task>_<model>.json
func Filename(scenario, taskID, model string, ts time.Time) string {
	stamp := ts.Format("20060102_150405") + fmt.Sprintf("%03d", ts.Nanosecond()/1e6)
	return fmt.Sprintf("%s_S%s_T%s_%s.json",
		stamp, sanitizeName(scenario), sanitizeName(taskID), sanitizeName(model))
}

// WriteResult serializes a result file into dir and returns its path.
func WriteResult(dir string, r *models.ResultFile) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create result dir: %w", err)
	}

	path := filepath.Join(dir, Filename(r.Scenario, r.TaskID, r.Execution.ModelName, r.Execution.Timestamp))
	if err := writeJSON(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// WriteEval serializes an evaluation record into dir, named after its source
// result file with an "eval_" prefix.
func WriteEval(dir string, rec *models.EvalRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create eval dir: %w", err)
	}

	base := "eval_" + filepath.Base(rec.OriginalFile)
	if rec.OriginalFile == "" {
		base = fmt.Sprintf("eval_%s.json", sanitizeName(rec.TaskID))
	}
	path := filepath.Join(dir, base)
	if err := writeJSON(path, rec); err != nil {
		return "", err
	}
	return path, nil
}

// LoadResult reads one result file.
func LoadResult(path string) (*models.ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r models.ResultFile
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &r, nil
}

// LoadEval reads one evaluation record.
func LoadEval(path string) (*models.EvalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec models.EvalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &rec, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
