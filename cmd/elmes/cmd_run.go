package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/elmes-ai/elmes/internal/backend"
	"github.com/elmes-ai/elmes/internal/config"
	"github.com/elmes-ai/elmes/internal/graph"
	"github.com/elmes-ai/elmes/internal/models"
	"github.com/elmes-ai/elmes/internal/runner"
)

var (
	runOutputDir string
	runVerbose   bool
	runWorkers   int
	runBoltPath  string
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a conversation scenario",
		Long: `Run every task of a scenario config.

Tasks are expanded from the task matrix, executed concurrently against the
configured backends, and each transcript is persisted as a result file.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "Output directory for results (overrides config)")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose output with per-turn progress")
	cmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of concurrent tasks (overrides config)")
	cmd.Flags().StringVar(&runBoltPath, "db", "", "Store results in a bbolt database at this path instead of JSON files")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(args[0],
		config.WithOutputDir(runOutputDir),
		config.WithVerbose(runVerbose),
		config.WithWorkers(runWorkers),
	)
	if err != nil {
		return err
	}

	outcomes, err := executeRun(cmd.Context(), cfg, runBoltPath)
	if err != nil {
		return err
	}

	failed := printRunSummary(outcomes)
	if failed > 0 {
		return &TaskFailureError{
			Message: fmt.Sprintf("run completed with %d failed task(s)", failed),
		}
	}
	return nil
}

// executeRun wires the graph, backends, and store together and runs every
// task. Shared with the pipeline command.
func executeRun(ctx context.Context, cfg *config.RunConfig, boltPath string) ([]runner.TaskOutcome, error) {
	spec := cfg.Spec()

	g, err := graph.Compile(spec)
	if err != nil {
		return nil, err
	}

	pool, err := backend.NewPool(spec.Models)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg, boltPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	r := runner.New(cfg, g, pool, st)
	if cfg.Verbose() {
		r.OnProgress(verboseProgressListener)
	} else {
		r.OnProgress(simpleProgressListener)
	}

	// Ctrl-C stops dispatching new turns; in-flight calls finish first.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running scenario: %s\n", spec.Name)
	fmt.Printf("Output: %s\n", cfg.OutputDir())
	fmt.Printf("Workers: %d\n", cfg.Workers())
	fmt.Println()

	return r.RunAll(ctx)
}

func printRunSummary(outcomes []runner.TaskOutcome) (failed int) {
	completed := 0
	for _, o := range outcomes {
		if o.Status == models.StatusCompleted {
			completed++
		} else {
			failed++
		}
	}

	fmt.Println()
	fmt.Println("=" + strings.Repeat("=", 50))
	fmt.Println(" RUN RESULTS")
	fmt.Println("=" + strings.Repeat("=", 50))
	fmt.Printf("Total Tasks: %d\n", len(outcomes))
	fmt.Printf("Completed:   %d\n", completed)
	fmt.Printf("Failed:      %d\n", failed)
	fmt.Println()

	if failed > 0 {
		fmt.Println("Failed Tasks:")
		for _, o := range outcomes {
			if o.Status != models.StatusCompleted {
				fmt.Printf("  - %s [%s]\n", o.TaskID, o.Status)
				if o.Err != nil {
					fmt.Printf("    • %v\n", o.Err)
				}
			}
		}
		fmt.Println()
	}
	return failed
}

func verboseProgressListener(event runner.ProgressEvent) {
	switch event.EventType {
	case runner.EventRunStart:
		fmt.Printf("Starting run with %d task(s)...\n\n", event.TotalTasks)
	case runner.EventTaskStart:
		fmt.Printf("[%d/%d] Running task: %s\n", event.TaskNum, event.TotalTasks, event.TaskID)
	case runner.EventTurn:
		fmt.Printf("  turn %d: %s\n", event.Turn, event.Agent)
	case runner.EventTaskComplete:
		fmt.Printf("  Task %s: %s\n\n", event.TaskID, event.Status)
	case runner.EventRunComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("Run completed in %v\n", duration)
	}
}

func simpleProgressListener(event runner.ProgressEvent) {
	if event.EventType != runner.EventTaskComplete {
		return
	}
	status := "✓"
	if event.Status != models.StatusCompleted {
		status = "✗"
	}
	fmt.Printf("%s [%d/%d] %s\n", status, event.TaskNum, event.TotalTasks, event.TaskID)
}
