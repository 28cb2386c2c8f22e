package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/models"
)

var (
	pipelineOutputDir string
	pipelineVerbose   bool
	pipelineWorkers   int
	pipelineBoltPath  string
	pipelineCSVPath   string
	pipelineSeed      int64
)

func newPipelineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline <config.yaml>",
		Short: "Run, evaluate, and report scores in one pass",
		Long: `Run every task of a scenario, grade the transcripts against the
config's rubric, and print the aggregated score report.

Equivalent to 'elmes run', 'elmes eval', and 'elmes scores' in sequence over
the same store.`,
		Args: cobra.ExactArgs(1),
		RunE: pipelineCommandE,
	}

	cmd.Flags().StringVarP(&pipelineOutputDir, "output", "o", "", "Output directory for results (overrides config)")
	cmd.Flags().BoolVarP(&pipelineVerbose, "verbose", "v", false, "Verbose output with per-turn progress")
	cmd.Flags().IntVar(&pipelineWorkers, "workers", 0, "Number of concurrent tasks (overrides config)")
	cmd.Flags().StringVar(&pipelineBoltPath, "db", "", "Store artifacts in a bbolt database at this path")
	cmd.Flags().StringVar(&pipelineCSVPath, "csv", "", "Write the score table as CSV to this path")
	cmd.Flags().Int64Var(&pipelineSeed, "seed", -1, "Seed for the bootstrap confidence interval (-1 for random)")

	return cmd
}

func pipelineCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args[0],
		config.WithOutputDir(pipelineOutputDir),
		config.WithVerbose(pipelineVerbose),
		config.WithWorkers(pipelineWorkers),
	)
	if err != nil {
		return err
	}
	if cfg.Spec().Evaluation == nil {
		return &models.ConfigError{Msg: "pipeline requires an evaluation section"}
	}

	outcomes, err := executeRun(cmd.Context(), cfg, pipelineBoltPath)
	if err != nil {
		return err
	}
	failed := printRunSummary(outcomes)

	st, err := openStore(cfg, pipelineBoltPath)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := executeEval(cmd.Context(), cfg, st)
	if err != nil {
		return err
	}

	tables := buildScoreTables(records)
	printScoreReport(tables, pipelineSeed)

	if pipelineCSVPath != "" {
		if err := writeTablesCSV(pipelineCSVPath, tables); err != nil {
			return err
		}
		fmt.Printf("Scores saved to: %s\n", pipelineCSVPath)
	}

	if failed > 0 {
		return &TaskFailureError{
			Message: fmt.Sprintf("pipeline completed with %d failed task(s)", failed),
		}
	}
	return nil
}
