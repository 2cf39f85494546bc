package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/report"
)

var (
	repAll     bool
	repSource  int64
	repJSON    bool
	repHistory int
)

// reputationCmd represents the reputation command group
var reputationCmd = &cobra.Command{
	Use:     "reputation",
	Aliases: []string{"rep"},
	Short:   "Score source reliability from support and contradiction links",
}

var reputationSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Append a reputation snapshot for one source or all sources",
	Long: `Snapshot computes the Laplace-smoothed reliability of a source from its
supporting and contradicting links, folds it into the exponential moving
average and appends the result to the snapshot history.

Example:
  forensia reputation snapshot --all
  forensia reputation snapshot --source 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if repAll == (repSource > 0) {
			return fmt.Errorf("specify exactly one of --all or --source")
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := context.Background()

		var snaps []model.ReputationSnapshot
		if repAll {
			snaps, err = a.reputation.SnapshotAll(ctx)
		} else {
			var snap *model.ReputationSnapshot
			snap, err = a.reputation.Snapshot(ctx, repSource)
			if snap != nil {
				snaps = append(snaps, *snap)
			}
		}
		if err != nil {
			return fmt.Errorf("reputation snapshot: %w", err)
		}

		if repJSON {
			return printJSON(snaps)
		}
		for _, s := range snaps {
			fmt.Printf("Source #%d reliability=%.4f ema=%.4f accuracy=%.4f support=%d contradict=%d trend=%s\n",
				s.SourceID, s.Reliability, s.EMA, s.Accuracy, s.SupportCount, s.ContraCount, s.Trend)
		}
		return nil
	},
}

var reputationProfileCmd = &cobra.Command{
	Use:   "profile <source-id>",
	Short: "Show the aggregated reputation profile of a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("source", args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := context.Background()

		p, err := a.reputation.Profile(ctx, id)
		if err != nil {
			return fmt.Errorf("reputation profile: %w", err)
		}
		var history []model.ReputationSnapshot
		if repHistory > 0 {
			if history, err = a.reputation.History(ctx, id, repHistory); err != nil {
				return fmt.Errorf("reputation history: %w", err)
			}
		}

		if repJSON {
			return printJSON(struct {
				*model.ReputationProfile
				History []model.ReputationSnapshot `json:"history,omitempty"`
			}{p, history})
		}

		fmt.Println(report.QuickLine(p))
		fmt.Printf("  snapshots=%d mean=%.4f std=%.4f support_ratio=%.4f trend_delta=%+.4f\n",
			p.SnapshotCount, p.MeanReliability, p.StdReliability, p.SupportRatio, p.TrendDelta)
		for _, s := range history {
			fmt.Printf("  %s reliability=%.4f ema=%.4f trend=%s\n",
				s.ComputedAt.Format("2006-01-02 15:04:05"), s.Reliability, s.EMA, s.Trend)
		}
		return nil
	},
}

var reputationRankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank sources by reliability index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		profiles, err := a.reputation.Rank(context.Background())
		if err != nil {
			return fmt.Errorf("reputation rank: %w", err)
		}
		if repJSON {
			return printJSON(profiles)
		}
		if len(profiles) == 0 {
			fmt.Println("No snapshots yet. Run 'forensia reputation snapshot --all' first.")
			return nil
		}
		for i := range profiles {
			fmt.Printf("%3d. %s\n", i+1, report.QuickLine(&profiles[i]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reputationCmd)
	reputationCmd.AddCommand(reputationSnapshotCmd, reputationProfileCmd, reputationRankCmd)

	reputationCmd.PersistentFlags().BoolVar(&repJSON, "json", false, "print JSON instead of text")
	reputationSnapshotCmd.Flags().BoolVar(&repAll, "all", false, "snapshot every source")
	reputationSnapshotCmd.Flags().Int64Var(&repSource, "source", 0, "snapshot a single source id")
	reputationProfileCmd.Flags().IntVar(&repHistory, "history", 0, "include the latest N snapshots")
}
