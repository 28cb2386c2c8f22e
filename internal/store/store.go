// Package store persists result files and evaluation records behind an
// interface the runner and evaluator treat as opaque.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/transcript"
)

// Store saves and loads run artifacts. Save returns an opaque location that
// Load accepts.
type Store interface {
	SaveResult(r *models.ResultFile) (string, error)
	LoadResult(location string) (*models.ResultFile, error)
	ListResults() ([]string, error)

	SaveEval(rec *models.EvalRecord) (string, error)
	LoadEval(location string) (*models.EvalRecord, error)
	ListEvals() ([]string, error)

	Close() error
}

// FileStore keeps one JSON file per record under a base directory, with
// evaluation records in an eval/ subdirectory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory layout if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "eval"), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) SaveResult(r *models.ResultFile) (string, error) {
	return transcript.WriteResult(s.dir, r)
}

func (s *FileStore) LoadResult(location string) (*models.ResultFile, error) {
	return transcript.LoadResult(location)
}

func (s *FileStore) ListResults() ([]string, error) {
	return listJSON(s.dir)
}

func (s *FileStore) SaveEval(rec *models.EvalRecord) (string, error) {
	return transcript.WriteEval(filepath.Join(s.dir, "eval"), rec)
}

func (s *FileStore) LoadEval(location string) (*models.EvalRecord, error) {
	return transcript.LoadEval(location)
}

func (s *FileStore) ListEvals() ([]string, error) {
	return listJSON(filepath.Join(s.dir, "eval"))
}

func (s *FileStore) Close() error { return nil }

func listJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
