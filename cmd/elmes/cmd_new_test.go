package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmes-ai/elmes/internal/wizard"
)

func TestValidateScenarioName(t *testing.T) {
	assert.NoError(t, validateScenarioName("math-tutoring"))
	assert.NoError(t, validateScenarioName("demo_01"))

	assert.Error(t, validateScenarioName(""))
	assert.Error(t, validateScenarioName(".."))
	assert.Error(t, validateScenarioName("a/b"))
	assert.Error(t, validateScenarioName(`a\b`))
}

func TestDefaultScenarioSpecGenerates(t *testing.T) {
	spec := defaultScenarioSpec("demo")

	content, err := wizard.GenerateConfig(spec)
	require.NoError(t, err)
	assert.Contains(t, content, "name: demo")
	assert.Contains(t, content, "START -> teacher")
	assert.Contains(t, content, "evaluation:")
}
