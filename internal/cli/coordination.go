package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forensia/internal/model"
)

var (
	coordJSON     bool
	coordWindow   float64
	coordClaim    int64
	coordMinScore float64
	coordLimit    int
)

// coordinationCmd represents the coordination command group
var coordinationCmd = &cobra.Command{
	Use:     "coordination",
	Aliases: []string{"coord"},
	Short:   "Detect sources that cite a claim in tight temporal clusters",
}

var coordinationScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Cluster citations per claim and persist coordination events",
	Long: `Scan groups each claim's citing sources by timestamp. Two or more distinct
sources inside the window form an event, scored by count and tightness and
classified by its spread.

Example:
  forensia coordination scan
  forensia coordination scan --window 6 --claim 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := context.Background()

		var events []model.CoordinationEvent
		if coordClaim > 0 {
			events, err = a.coordination.ScanClaim(ctx, coordClaim, coordWindow)
		} else {
			events, err = a.coordination.Scan(ctx, coordWindow)
		}
		if err != nil {
			return fmt.Errorf("coordination scan: %w", err)
		}
		if coordJSON {
			return printJSON(events)
		}
		fmt.Printf("Detected %d coordination events\n", len(events))
		printEvents(events)
		return nil
	},
}

var coordinationSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize persisted coordination events",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.coordination.Summary(context.Background())
		if err != nil {
			return fmt.Errorf("coordination summary: %w", err)
		}
		if coordJSON {
			return printJSON(sum)
		}
		fmt.Printf("Events: %d  Clusters: %d  Highest: %.4f  Mean: %.4f\n",
			sum.TotalEvents, sum.TotalClusters, sum.HighestScore, sum.MeanScore)
		for _, p := range []model.Pattern{model.PatternSimultaneous, model.PatternCascade, model.PatternBurst} {
			fmt.Printf("  %-12s %d\n", p, sum.Patterns[p])
		}
		for _, f := range sum.TopSources {
			fmt.Printf("  Source #%d in %d events\n", f.SourceID, f.EventCount)
		}
		return nil
	},
}

var coordinationEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List persisted coordination events by score",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.coordination.Events(context.Background(), coordMinScore, coordLimit)
		if err != nil {
			return fmt.Errorf("coordination events: %w", err)
		}
		if coordJSON {
			return printJSON(events)
		}
		printEvents(events)
		return nil
	},
}

func printEvents(events []model.CoordinationEvent) {
	for _, e := range events {
		fmt.Printf("  [%s] claim #%d score=%.4f sources=%v window=%.2fh %s\n",
			e.Pattern, e.ClaimID, e.Score, e.SourceIDs, e.WindowHours, e.ClusterID)
	}
}

func init() {
	rootCmd.AddCommand(coordinationCmd)
	coordinationCmd.AddCommand(coordinationScanCmd, coordinationSummaryCmd, coordinationEventsCmd)

	coordinationCmd.PersistentFlags().BoolVar(&coordJSON, "json", false, "print JSON instead of text")
	coordinationScanCmd.Flags().Float64Var(&coordWindow, "window", 0, "clustering window in hours (default: analysis.window_hours)")
	coordinationScanCmd.Flags().Int64Var(&coordClaim, "claim", 0, "scan a single claim id")
	coordinationEventsCmd.Flags().Float64Var(&coordMinScore, "min-score", 0, "minimum coordination score")
	coordinationEventsCmd.Flags().IntVar(&coordLimit, "limit", 20, "maximum events to list (0 for all)")
}
