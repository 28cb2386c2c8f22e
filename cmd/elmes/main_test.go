package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"run", "eval", "scores", "export", "pipeline", "new"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	flag := cmd.PersistentFlags().Lookup("debug")
	require.NotNil(t, flag)
}

func TestTaskFailureError(t *testing.T) {
	err := &TaskFailureError{Message: "run completed with 2 failed task(s)"}
	assert.Equal(t, "run completed with 2 failed task(s)", err.Error())
}
