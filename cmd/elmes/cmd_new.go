package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/elmes-ai/elmes/internal/wizard"
)

func newNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <scenario-name>",
		Short: "Create a starter scenario config",
		Long: `Create a starter scenario config file.

When running in a terminal (TTY), launches an interactive wizard to collect
the backend, model, and agent layout. In non-interactive environments (CI,
pipes), a two-agent default is written.`,
		Args: cobra.ExactArgs(1),
		RunE: newCommandE,
	}

	return cmd
}

func newCommandE(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := validateScenarioName(name); err != nil {
		return err
	}

	spec := defaultScenarioSpec(name)

	// Check TTY from the command's input stream, not os.Stdin directly.
	inReader := cmd.InOrStdin()
	isTTY := false
	if f, ok := inReader.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	if isTTY {
		collected, err := wizard.RunScenarioWizard(cmd.InOrStdin(), cmd.OutOrStdout(), name)
		if err != nil {
			return err
		}
		if collected.Name != name {
			return fmt.Errorf("wizard name %q does not match CLI argument %q", collected.Name, name)
		}
		spec = collected
	}

	content, err := wizard.GenerateConfig(spec)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	path := name + ".yaml"
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)                              //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "Next: set API_KEY and run 'elmes run %s'\n", path) //nolint:errcheck
	return nil
}

// validateScenarioName rejects names with path-traversal characters or empty
// names.
func validateScenarioName(name string) error {
	if name == "" {
		return fmt.Errorf("scenario name must not be empty")
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.Contains(cleaned, "/") || strings.Contains(cleaned, "\\") {
		return fmt.Errorf("scenario name %q contains invalid path characters", name)
	}
	return nil
}

func defaultScenarioSpec(name string) *wizard.ScenarioSpec {
	return &wizard.ScenarioSpec{
		Name:       name,
		Backend:    "openai",
		Model:      "gpt-4o",
		Agents:     []string{"teacher", "student"},
		MaxTurns:   25,
		WithRubric: true,
	}
}
