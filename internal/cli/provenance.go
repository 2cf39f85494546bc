package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forensia/internal/model"
)

var (
	provJSON bool
	provAll  bool
)

// provenanceCmd represents the provenance command group
var provenanceCmd = &cobra.Command{
	Use:     "provenance",
	Aliases: []string{"prov"},
	Short:   "Trace claims back to their origin",
}

var provenanceTraceCmd = &cobra.Command{
	Use:   "trace [claim-id]",
	Short: "Trace one claim, or every claim with --all",
	Long: `Trace follows a claim's revision chain to its root, then walks source
links backwards to the earliest source that carried it. Confidence decays
with every hop.

Example:
  forensia provenance trace 42
  forensia provenance trace --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if provAll == (len(args) == 1) {
			return fmt.Errorf("specify a claim id or --all")
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := context.Background()

		var traces []model.ProvenanceTrace
		if provAll {
			traces, err = a.provenance.TraceAll(ctx)
		} else {
			var id int64
			if id, err = parseID("claim", args[0]); err != nil {
				return err
			}
			var t *model.ProvenanceTrace
			t, err = a.provenance.Trace(ctx, id)
			if t != nil {
				traces = append(traces, *t)
			}
		}
		if err != nil {
			return fmt.Errorf("provenance trace: %w", err)
		}
		if provJSON {
			return printJSON(traces)
		}
		for _, t := range traces {
			printTrace(t)
		}
		return nil
	},
}

var provenanceSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize persisted provenance traces",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.provenance.Summary(context.Background())
		if err != nil {
			return fmt.Errorf("provenance summary: %w", err)
		}
		if provJSON {
			return printJSON(sum)
		}
		fmt.Printf("Traced: %d  Orphans: %d  Avg depth: %.2f  Max depth: %d  Avg confidence: %.4f\n",
			sum.TotalTraced, sum.OrphanCount, sum.AvgChainDepth, sum.MaxChainDepth, sum.AvgConfidence)
		for _, o := range []model.OriginType{model.OriginOriginal, model.OriginDerived, model.OriginMutated, model.OriginAmplified, model.OriginOrphan} {
			fmt.Printf("  %-10s %d\n", o, sum.Origins[o])
		}
		for _, c := range sum.DeepestChains {
			fmt.Printf("  claim #%d depth=%d origin=%s confidence=%.4f\n", c.ClaimID, c.ChainDepth, c.OriginType, c.Confidence)
		}
		return nil
	},
}

func printTrace(t model.ProvenanceTrace) {
	origin := "none"
	if t.OriginSourceID > 0 {
		origin = fmt.Sprintf("#%d %q", t.OriginSourceID, t.OriginSource)
	}
	fmt.Printf("Claim #%d [%s] root=#%d origin=%s depth=%d (mutation %d, source %d) confidence=%.4f\n",
		t.ClaimID, t.OriginType, t.RootClaimID, origin, t.ChainDepth, t.MutationDepth, t.SourceDepth, t.Confidence)
	for _, h := range t.Path {
		fmt.Printf("    %s #%d %s\n", h.Kind, h.ID, h.Label)
	}
}

func init() {
	rootCmd.AddCommand(provenanceCmd)
	provenanceCmd.AddCommand(provenanceTraceCmd, provenanceSummaryCmd)

	provenanceCmd.PersistentFlags().BoolVar(&provJSON, "json", false, "print JSON instead of text")
	provenanceTraceCmd.Flags().BoolVar(&provAll, "all", false, "trace every claim")
}
