package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forensia/internal/model"
)

var infJSON bool

// influenceCmd represents the influence command group
var influenceCmd = &cobra.Command{
	Use:   "influence",
	Short: "Map which sources carry claims before others",
}

var influenceBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Derive and persist influence edges from shared claims",
	Long: `Build orders every claim's sources by first appearance and records an
amplification edge from each earlier source to each later one. Edges are
appended under a fresh run id; earlier runs are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		edges, err := a.influence.BuildEdges(context.Background())
		if err != nil {
			return fmt.Errorf("influence build: %w", err)
		}
		if infJSON {
			return printJSON(edges)
		}
		fmt.Printf("Built %d influence edges\n", len(edges))
		for _, e := range edges {
			fmt.Printf("  #%d -> #%d shared=%d amplification=%.4f\n",
				e.FromSourceID, e.ToSourceID, e.SharedClaims, e.Amplification)
		}
		return nil
	},
}

var influenceAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the influence network: centrality, gateways, bottlenecks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		net, err := a.influence.AnalyzeNetwork(context.Background())
		if err != nil {
			return fmt.Errorf("influence analyze: %w", err)
		}
		if infJSON {
			return printJSON(net)
		}
		printNetwork(net)
		return nil
	},
}

var influenceSourceCmd = &cobra.Command{
	Use:   "source <source-id>",
	Short: "List who a source influences and who influences it",
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

		out, err := a.influence.InfluenceOn(ctx, id)
		if err != nil {
			return fmt.Errorf("influence of source %d: %w", id, err)
		}
		in, err := a.influence.InfluencedBy(ctx, id)
		if err != nil {
			return fmt.Errorf("influences on source %d: %w", id, err)
		}
		if infJSON {
			return printJSON(map[string][]model.InfluenceEdge{"influences": out, "influenced_by": in})
		}
		fmt.Printf("Source #%d influences %d sources:\n", id, len(out))
		for _, e := range out {
			fmt.Printf("  -> #%d shared=%d amplification=%.4f\n", e.ToSourceID, e.SharedClaims, e.Amplification)
		}
		fmt.Printf("Source #%d is influenced by %d sources:\n", id, len(in))
		for _, e := range in {
			fmt.Printf("  <- #%d shared=%d amplification=%.4f\n", e.FromSourceID, e.SharedClaims, e.Amplification)
		}
		return nil
	},
}

func printNetwork(net *model.NetworkProfile) {
	fmt.Printf("Sources: %d  Edges: %d  Density: %.4f  Components: %d\n",
		net.TotalSources, net.TotalEdges, net.Density, net.Components)
	if len(net.Centrality) > 0 {
		fmt.Println("PageRank:")
		for i, c := range net.Centrality {
			if i == 10 {
				break
			}
			fmt.Printf("  #%d %.4f\n", c.SourceID, c.PageRank)
		}
	}
	for _, g := range net.Gateways {
		fmt.Printf("Gateway #%d betweenness=%.4f\n", g.SourceID, g.Betweenness)
	}
	for _, b := range net.Bottlenecks {
		fmt.Printf("Bottleneck #%d betweenness=%.4f components_if_removed=%d\n",
			b.SourceID, b.Betweenness, b.ComponentsIfRemoved)
	}
	for _, amp := range net.TopAmplifiers {
		fmt.Printf("Amplifier #%d %q total=%.4f\n", amp.SourceID, amp.Title, amp.AmplificationTotal)
	}
}

func init() {
	rootCmd.AddCommand(influenceCmd)
	influenceCmd.AddCommand(influenceBuildCmd, influenceAnalyzeCmd, influenceSourceCmd)
	influenceCmd.PersistentFlags().BoolVar(&infJSON, "json", false, "print JSON instead of text")
}
