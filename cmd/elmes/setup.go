package main

import (
	"fmt"
	"path/filepath"

	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/store"
)

// loadRunConfig loads a scenario config and wraps it with the shared CLI
// overrides.
func loadRunConfig(specPath string, opts ...config.Option) (*config.RunConfig, error) {
	spec, err := models.LoadSpec(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	specDir := filepath.Dir(specPath)
	if !filepath.IsAbs(specDir) {
		if abs, err := filepath.Abs(specDir); err == nil {
			specDir = abs
		}
	}

	opts = append([]config.Option{config.WithSpecDir(specDir)}, opts...)
	return config.New(spec, opts...), nil
}

// openStore opens the result store: a bbolt database when boltPath is set,
// otherwise one JSON file per record under the output directory.
func openStore(cfg *config.RunConfig, boltPath string) (store.Store, error) {
	if boltPath != "" {
		if !filepath.IsAbs(boltPath) {
			if abs, err := filepath.Abs(boltPath); err == nil {
				boltPath = abs
			}
		}
		return store.OpenBolt(boltPath)
	}
	return store.NewFileStore(cfg.OutputDir())
}
