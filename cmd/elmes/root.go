package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elmes",
		Short: "elmes - orchestrate and grade multi-agent LLM conversations",
		Long: `elmes drives scripted conversations between LLM agents and grades the
resulting transcripts against a rubric.

A scenario config defines the models, the agents and their personas, the
conversation graph, the task matrix, and optionally an evaluation rubric.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newEvalCommand())
	cmd.AddCommand(newScoresCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newPipelineCommand())
	cmd.AddCommand(newNewCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
