// Package llm produces an optional narrative summary of an ecosystem report.
//
// The summary never feeds back into any score. In strict evidence mode the
// model may only cite URLs of sources that appear in the report.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/forensia/internal/model"
)

// Provider is a chat model able to summarize a report
type Provider interface {
	Name() string
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest is the input to a provider
type SummarizeRequest struct {
	Report *model.EcosystemReport

	// EvidenceURLs is the allowlist of URLs the model may cite
	EvidenceURLs []string

	Prompt    string // overrides BuildPrompt when set
	Model     string
	MaxTokens int
}

// SummarizeResponse is a provider's output
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds provider settings
type Config struct {
	Provider       string // "openai", "ollama" or "" (disabled)
	Model          string
	APIKey         string
	BaseURL        string
	Timeout        int // seconds
	StrictEvidence bool
	MaxTokens      int
}

// DefaultConfig returns a disabled, strict configuration
func DefaultConfig() Config {
	return Config{
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      800,
	}
}

const maxPromptURLs = 20

// BuildPrompt renders the default summarization prompt for an ecosystem report
func BuildPrompt(report *model.EcosystemReport, evidenceURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing a source-forensics report. The report measures how sources behave in an evidence graph (reliability, influence, coordination, provenance). It NEVER asserts that any claim is true or false.

RULES:
1. You may ONLY cite URLs from this list:
%s

2. Do not cite or infer anything beyond the figures below.
3. Describe patterns in the evidence graph, not the truth of claims.
4. If a section is missing, say the data was unavailable.

Ecosystem figures:
- Sources: %d
- Ecosystem health: %.1f%% (grade %s)
`, joinURLs(evidenceURLs), report.SourceCount, report.Health*100, report.Grade)

	if r := report.Reputation; r != nil {
		fmt.Fprintf(&b, "- Mean reliability index: %.4f (median %.4f)\n", r.MeanReliability, r.MedianReliability)
	}
	if n := report.Network; n != nil {
		fmt.Fprintf(&b, "- Influence network: %d edges, density %.4f, %d components\n", n.TotalEdges, n.Density, n.Components)
	}
	if c := report.Coordination; c != nil {
		fmt.Fprintf(&b, "- Coordination events: %d (highest score %.4f)\n", c.TotalEvents, c.HighestScore)
	}
	if p := report.Provenance; p != nil {
		fmt.Fprintf(&b, "- Claims traced: %d, orphans: %d, mean confidence %.4f\n", p.TotalTraced, p.OrphanCount, p.AvgConfidence)
	}

	if len(report.TopSources) > 0 {
		b.WriteString("\nMost reliable sources:\n")
		for _, s := range report.TopSources {
			fmt.Fprintf(&b, "- [%s] %s (index %.4f)\n", s.Grade, s.Title, s.ReliabilityIndex)
		}
	}

	b.WriteString("\nSignals:\n")
	for _, s := range report.Signals {
		fmt.Fprintf(&b, "- %s (%s): %s\n", s.Type, s.Severity, s.Description)
	}

	b.WriteString("\nWrite a 3-5 sentence summary of the ecosystem's evidence quality.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(no source URLs available)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= maxPromptURLs {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-maxPromptURLs)
			break
		}
		fmt.Fprintf(&b, "\n- %s", u)
	}
	return b.String()
}
