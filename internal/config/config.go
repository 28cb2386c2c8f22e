// Package config wraps a loaded spec with run-scoped settings resolved from
// CLI flags. The wrapper is immutable after construction.
package config

import (
	"path/filepath"

	"github.com/elmes-ai/elmes/internal/models"
)

// RunConfig carries the spec plus run-level overrides.
type RunConfig struct {
	spec      *models.Spec
	specDir   string
	outputDir string
	verbose   bool
	workers   int
}

// Option configures a RunConfig.
type Option func(*RunConfig)

// WithSpecDir records the directory the spec was loaded from; relative
// output paths resolve against it.
func WithSpecDir(dir string) Option {
	return func(c *RunConfig) { c.specDir = dir }
}

// WithOutputDir overrides the spec's output directory.
func WithOutputDir(dir string) Option {
	return func(c *RunConfig) { c.outputDir = dir }
}

// WithVerbose enables verbose progress output.
func WithVerbose(v bool) Option {
	return func(c *RunConfig) { c.verbose = v }
}

// WithWorkers overrides the spec's concurrency.
func WithWorkers(n int) Option {
	return func(c *RunConfig) { c.workers = n }
}

// New wraps a spec.
func New(spec *models.Spec, opts ...Option) *RunConfig {
	c := &RunConfig{spec: spec}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Spec returns the wrapped spec.
func (c *RunConfig) Spec() *models.Spec { return c.spec }

// SpecDir returns the spec's directory, or "".
func (c *RunConfig) SpecDir() string { return c.specDir }

// Verbose reports whether verbose output is enabled.
func (c *RunConfig) Verbose() bool { return c.verbose }

// Workers returns the effective worker pool size.
func (c *RunConfig) Workers() int {
	if c.workers > 0 {
		return c.workers
	}
	if c.spec != nil && c.spec.Globals.Concurrency > 0 {
		return c.spec.Globals.Concurrency
	}
	return 4
}

// OutputDir returns the effective result directory, resolved against the
// spec directory when relative.
func (c *RunConfig) OutputDir() string {
	dir := c.outputDir
	if dir == "" && c.spec != nil {
		dir = c.spec.Globals.OutputDir
	}
	if dir == "" {
		dir = "results"
	}
	if !filepath.IsAbs(dir) && c.specDir != "" {
		dir = filepath.Join(c.specDir, dir)
	}
	return dir
}

// EvalDir returns the directory evaluation records are written to.
func (c *RunConfig) EvalDir() string {
	return filepath.Join(c.OutputDir(), "eval")
}
