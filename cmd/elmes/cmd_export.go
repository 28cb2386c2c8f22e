package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/models"
)

var (
	exportOutputDir string
	exportBoltPath  string
	exportPath      string
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <config.yaml>",
		Short: "Export stored transcripts as a CSV table",
		Long: `Export every stored transcript to one CSV row.

Each row carries the task id, status, turn count, the opening question, the
final answer, and one column per task variable.`,
		Args: cobra.ExactArgs(1),
		RunE: exportCommandE,
	}

	cmd.Flags().StringVarP(&exportOutputDir, "output", "o", "", "Result directory to read from (overrides config)")
	cmd.Flags().StringVar(&exportBoltPath, "db", "", "Read results from a bbolt database at this path")
	cmd.Flags().StringVar(&exportPath, "out", "transcripts.csv", "Path of the CSV file to write")

	return cmd
}

func exportCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args[0], config.WithOutputDir(exportOutputDir))
	if err != nil {
		return err
	}

	st, err := openStore(cfg, exportBoltPath)
	if err != nil {
		return err
	}
	defer st.Close()

	locations, err := st.ListResults()
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		return fmt.Errorf("no results found; run 'elmes run' first")
	}

	results := make([]*models.ResultFile, 0, len(locations))
	for _, loc := range locations {
		r, err := st.LoadResult(loc)
		if err != nil {
			return fmt.Errorf("loading %s: %w", loc, err)
		}
		results = append(results, r)
	}

	if err := exportCSV(exportPath, results); err != nil {
		return err
	}
	fmt.Printf("Exported %d transcript(s) to: %s\n", len(results), exportPath)
	return nil
}

func exportCSV(path string, results []*models.ResultFile) error {
	varNames := map[string]bool{}
	for _, r := range results {
		for name := range r.Task {
			varNames[name] = true
		}
	}
	sortedVars := make([]string, 0, len(varNames))
	for name := range varNames {
		sortedVars = append(sortedVars, name)
	}
	sort.Strings(sortedVars)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := append([]string{"task_id", "scenario", "status", "turns", "question", "answer"}, sortedVars...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range results {
		row := []string{
			r.TaskID,
			r.Scenario,
			string(r.Status),
			strconv.Itoa(r.Execution.Turns),
			r.Question(),
			r.FinalAnswer(),
		}
		for _, name := range sortedVars {
			row = append(row, r.Task[name])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", r.TaskID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
