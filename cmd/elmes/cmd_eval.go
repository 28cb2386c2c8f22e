package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elmes-ai/elmes/internal/backend"
	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/eval"
	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/scores"
	"github.com/elmes-ai/elmes/internal/store"
)

var (
	evalOutputDir string
	evalWorkers   int
	evalBoltPath  string
	evalCSVPath   string
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <config.yaml>",
		Short: "Grade stored transcripts against the config's rubric",
		Long: `Grade every stored transcript with the evaluation model.

Each result file produces one evaluation record. Records whose reply could
not be coerced to the rubric contract are kept with the raw text and show up
as unscored downstream.`,
		Args: cobra.ExactArgs(1),
		RunE: evalCommandE,
	}

	cmd.Flags().StringVarP(&evalOutputDir, "output", "o", "", "Result directory to read from (overrides config)")
	cmd.Flags().IntVar(&evalWorkers, "workers", 0, "Number of concurrent evaluations (overrides config)")
	cmd.Flags().StringVar(&evalBoltPath, "db", "", "Read results from a bbolt database at this path")
	cmd.Flags().StringVar(&evalCSVPath, "csv", "", "Also write flattened scores as CSV to this path")

	return cmd
}

func evalCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args[0],
		config.WithOutputDir(evalOutputDir),
		config.WithWorkers(evalWorkers),
	)
	if err != nil {
		return err
	}

	st, err := openStore(cfg, evalBoltPath)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := executeEval(cmd.Context(), cfg, st)
	if err != nil {
		return err
	}

	if evalCSVPath != "" {
		if err := writeScoresCSV(evalCSVPath, records); err != nil {
			return err
		}
		fmt.Printf("Scores saved to: %s\n", evalCSVPath)
	}
	return nil
}

// executeEval grades every stored transcript and prints a short summary.
// Shared with the pipeline command.
func executeEval(ctx context.Context, cfg *config.RunConfig, st store.Store) ([]*models.EvalRecord, error) {
	spec := cfg.Spec()

	pool, err := backend.NewPool(spec.Models)
	if err != nil {
		return nil, err
	}

	evaluator, err := eval.New(cfg, pool)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Evaluating scenario: %s\n", spec.Name)
	fmt.Printf("Rubric mode: %s\n", evaluator.Contract().Mode)
	fmt.Println()

	outcomes, err := evaluator.EvaluateAll(ctx, st)
	if err != nil {
		return nil, err
	}

	var records []*models.EvalRecord
	evaluated, parseFailures, errored := 0, 0, 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			errored++
		case o.Record != nil:
			records = append(records, o.Record)
			evaluated++
			if o.Record.ParseFailure {
				parseFailures++
			}
		}
	}

	fmt.Printf("Evaluated:      %d\n", evaluated)
	fmt.Printf("Parse failures: %d\n", parseFailures)
	fmt.Printf("Errors:         %d\n", errored)
	fmt.Println()

	if evaluated == 0 && errored > 0 {
		return nil, fmt.Errorf("all %d evaluation(s) failed", errored)
	}
	return records, nil
}

func writeScoresCSV(path string, records []*models.EvalRecord) error {
	tables := make([]scores.Table, 0, len(records))
	for _, rec := range records {
		tables = append(tables, scores.Flatten(rec))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return scores.WriteCSV(f, tables)
}
