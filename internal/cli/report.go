package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forensia/internal/llm"
	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/report"
)

var (
	reportSource  int64
	reportJSON    bool
	reportQuick   bool
	reportLLM     bool
	reportLLMOut  string
	reportNoCache bool
	reportTimeout time.Duration
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a source or ecosystem forensics report",
	Long: `Report combines the persisted output of every analyzer into a narrative.

Without --source the ecosystem report is produced: reputation distribution,
top and bottom sources, network structure, coordination, provenance and an
overall health grade. With --source a single source's sections are shown.

The optional LLM summary only rephrases the report; it never changes grades.

Example:
  forensia report
  forensia report --source 12 --json
  forensia report --llm --llm-out summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int64Var(&reportSource, "source", 0, "report on a single source id")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the structured report as JSON")
	reportCmd.Flags().BoolVar(&reportQuick, "quick", false, "one-line summary of --source")
	reportCmd.Flags().BoolVar(&reportLLM, "llm", false, "attach an LLM narrative summary (ecosystem report only)")
	reportCmd.Flags().StringVar(&reportLLMOut, "llm-out", "", "also write the LLM summary as Markdown to this path")
	reportCmd.Flags().BoolVar(&reportNoCache, "no-cache", false, "bypass the report cache")
	reportCmd.Flags().DurationVar(&reportTimeout, "timeout", 2*time.Minute, "overall report timeout")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if reportQuick {
		if reportSource <= 0 {
			return fmt.Errorf("--quick requires --source")
		}
		r, err := a.reporter(false, false)
		if err != nil {
			return err
		}
		line, err := r.QuickSource(ctx, reportSource)
		if err != nil {
			return err
		}
		fmt.Println(line)
		return nil
	}

	withLLM := reportLLM && reportSource == 0
	// A cached ecosystem report may predate the summary request
	r, err := a.reporter(a.cfg.Cache.Enabled && !reportNoCache && !withLLM, withLLM)
	if err != nil {
		return err
	}

	data, err := r.GenerateData(ctx, reportSource)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if eco, ok := data.(*model.EcosystemReport); ok && withLLM {
		r.Summarize(ctx, eco)
		if reportLLMOut != "" {
			if md := llm.RenderSeparateMarkdown(eco.LLM); md != "" {
				if err := os.WriteFile(reportLLMOut, []byte(md), 0644); err != nil {
					return fmt.Errorf("write LLM summary: %w", err)
				}
				fmt.Fprintf(os.Stderr, "✓ LLM summary written to %s\n", reportLLMOut)
			}
		}
		for _, w := range eco.LLM.Warnings {
			fmt.Fprintf(os.Stderr, "  %s\n", w)
		}
	}

	if reportJSON {
		return printJSON(data)
	}
	switch rep := data.(type) {
	case *model.SourceReport:
		fmt.Print(report.RenderSource(rep))
	case *model.EcosystemReport:
		fmt.Print(report.RenderEcosystem(rep))
	}
	return nil
}
