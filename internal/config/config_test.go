package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elmes-ai/elmes/internal/models"
)

func TestWorkers_Precedence(t *testing.T) {
	spec := &models.Spec{Globals: models.GlobalConfig{Concurrency: 6}}

	assert.Equal(t, 6, New(spec).Workers())
	assert.Equal(t, 12, New(spec, WithWorkers(12)).Workers())

	// Zero-valued override falls through to the spec.
	assert.Equal(t, 6, New(spec, WithWorkers(0)).Workers())

	bare := &models.Spec{}
	assert.Equal(t, 4, New(bare).Workers())
}

func TestOutputDir_Resolution(t *testing.T) {
	spec := &models.Spec{Globals: models.GlobalConfig{OutputDir: "results"}}

	c := New(spec, WithSpecDir("/scenarios/math"))
	assert.Equal(t, filepath.Join("/scenarios/math", "results"), c.OutputDir())
	assert.Equal(t, filepath.Join("/scenarios/math", "results", "eval"), c.EvalDir())

	// An absolute directory is taken as-is.
	c = New(spec, WithSpecDir("/scenarios/math"), WithOutputDir("/data/out"))
	assert.Equal(t, "/data/out", c.OutputDir())

	// No spec dir: relative paths stay relative.
	c = New(spec)
	assert.Equal(t, "results", c.OutputDir())

	// Empty everything falls back to the default.
	c = New(&models.Spec{})
	assert.Equal(t, "results", c.OutputDir())
}

func TestVerbose(t *testing.T) {
	spec := &models.Spec{}
	assert.False(t, New(spec).Verbose())
	assert.True(t, New(spec, WithVerbose(true)).Verbose())
}
