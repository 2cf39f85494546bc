package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts of the graph store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.store.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("store stats: %w", err)
		}
		if statusJSON {
			return printJSON(stats)
		}

		fmt.Printf("Store: %s\n\n", a.cfg.Store.Path)
		fmt.Printf("  Sources:              %d\n", stats.Sources)
		fmt.Printf("  Claims:               %d\n", stats.Claims)
		fmt.Printf("  Evidence links:       %d\n", stats.Links)
		fmt.Printf("  Reputation snapshots: %d\n", stats.Snapshots)
		fmt.Printf("  Influence edges:      %d\n", stats.Edges)
		fmt.Printf("  Coordination events:  %d\n", stats.Events)
		fmt.Printf("  Provenance traces:    %d\n", stats.Traces)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON instead of text")
}
