package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forensia/internal/worker"
)

var (
	runPasses  []string
	runTimeout time.Duration
	runWorkers int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run analyzer passes concurrently",
	Long: `Run executes the reputation, influence, coordination and provenance passes
on a bounded worker pool. Each pass appends its output to the store.

Example:
  forensia run
  forensia run --pass reputation --pass coordination
  forensia run --workers 2 --timeout 5m`,
	RunE: runPassesCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runPasses, "pass", nil, "pass to run (repeatable; default: all)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "total timeout for all passes")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent passes (default: concurrency.workers)")
}

func runPassesCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if runWorkers > 0 {
		a.cfg.Concurrency.Workers = runWorkers
	}
	limiter := worker.NewLimiter(a.cfg.Concurrency.PassesPerSec, a.cfg.Concurrency.PassBurst)
	runner := a.runner(limiter)

	passes := make([]worker.Pass, 0, len(runPasses))
	for _, p := range runPasses {
		passes = append(passes, worker.Pass(p))
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	banner("Forensia Analyzer Passes")
	fmt.Fprintf(os.Stderr, "  Store:    %s\n", a.cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "  Workers:  %d\n", a.cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Timeout:  %v\n", runTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	startTime := time.Now()
	results, err := runner.Run(ctx, passes...)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %-13s %v\n", res.Pass, res.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %-13s %d records in %v\n", res.Pass, res.Records, res.Elapsed.Round(time.Millisecond))
	}

	banner("Summary")
	fmt.Fprintf(os.Stderr, "  Passes:   %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:  %d\n", len(results)-failed)
	fmt.Fprintf(os.Stderr, "  Failed:   %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Duration: %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")

	if err := worker.FirstError(results); err != nil {
		return fmt.Errorf("%d of %d passes failed: %w", failed, len(results), err)
	}
	return nil
}
