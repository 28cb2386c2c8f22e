package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/scores"
	"github.com/elmes-ai/elmes/internal/statistics"
	"github.com/elmes-ai/elmes/internal/store"
)

var (
	scoresOutputDir string
	scoresBoltPath  string
	scoresCSVPath   string
	scoresSeed      int64
)

func newScoresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores <config.yaml>",
		Short: "Aggregate stored evaluation records into score statistics",
		Long: `Flatten stored evaluation records into score tables and report
per-dimension and overall statistics.

Records that failed structured parsing fall back to scanning their raw text
for "dimension: number" lines before being counted as unscored.`,
		Args: cobra.ExactArgs(1),
		RunE: scoresCommandE,
	}

	cmd.Flags().StringVarP(&scoresOutputDir, "output", "o", "", "Result directory to read from (overrides config)")
	cmd.Flags().StringVar(&scoresBoltPath, "db", "", "Read evaluation records from a bbolt database at this path")
	cmd.Flags().StringVar(&scoresCSVPath, "csv", "", "Write the score table as CSV to this path")
	cmd.Flags().Int64Var(&scoresSeed, "seed", -1, "Seed for the bootstrap confidence interval (-1 for random)")

	return cmd
}

func scoresCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args[0], config.WithOutputDir(scoresOutputDir))
	if err != nil {
		return err
	}

	st, err := openStore(cfg, scoresBoltPath)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := loadEvalRecords(st)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no evaluation records found; run 'elmes eval' first")
	}

	tables := buildScoreTables(records)
	printScoreReport(tables, scoresSeed)

	if scoresCSVPath != "" {
		if err := writeTablesCSV(scoresCSVPath, tables); err != nil {
			return err
		}
		fmt.Printf("Scores saved to: %s\n", scoresCSVPath)
	}
	return nil
}

func loadEvalRecords(st store.Store) ([]*models.EvalRecord, error) {
	locations, err := st.ListEvals()
	if err != nil {
		return nil, err
	}
	records := make([]*models.EvalRecord, 0, len(locations))
	for _, loc := range locations {
		rec, err := st.LoadEval(loc)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", loc, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// buildScoreTables flattens records, rescuing parse failures whose raw text
// still carries recognizable score lines.
func buildScoreTables(records []*models.EvalRecord) []scores.Table {
	tables := make([]scores.Table, 0, len(records))
	for _, rec := range records {
		t := scores.Flatten(rec)
		if rec.ParseFailure && rec.RawText != "" {
			if rescued := scores.ParseTextScores(rec.RawText); len(rescued) > 0 {
				t = scores.Table{TaskID: rec.TaskID, Scores: rescued}
			}
		}
		tables = append(tables, t)
	}
	return tables
}

func printScoreReport(tables []scores.Table, seed int64) {
	stats := scores.Aggregate(tables)

	fmt.Println("=" + strings.Repeat("=", 50))
	fmt.Println(" SCORE REPORT")
	fmt.Println("=" + strings.Repeat("=", 50))
	fmt.Println()

	fmt.Printf("%-30s %5s %8s %8s %8s\n", "Dimension", "N", "Mean", "Min", "Max")
	fmt.Println("-" + strings.Repeat("-", 62))
	for _, dim := range stats.Dimensions() {
		ds := stats.PerDimension[dim]
		fmt.Printf("%-30s %5d %8.2f %8.2f %8.2f\n", dim, ds.Count, ds.Mean, ds.Min, ds.Max)
	}
	fmt.Println()

	fmt.Printf("Tasks:          %d\n", len(tables))
	fmt.Printf("Overall Mean:   %.2f\n", stats.OverallMean)
	fmt.Printf("Unscored:       %d\n", stats.UnscoredCount)

	if len(stats.TaskTotals) >= 2 {
		ci := statistics.BootstrapCIWithSeed(stats.TaskTotals, 0.95, seed)
		fmt.Printf("CI95 (total):   [%.2f, %.2f]\n", ci.Lower, ci.Upper)
	}
	fmt.Println()
}

func writeTablesCSV(path string, tables []scores.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return scores.WriteCSV(f, tables)
}
