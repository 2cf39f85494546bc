package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
)

// SourceLookup resolves source ids to their records
type SourceLookup interface {
	Source(ctx context.Context, id int64) (*model.Source, error)
}

// Summarizer attaches narrative summaries to ecosystem reports
type Summarizer struct {
	provider Provider
	sources  SourceLookup
	config   Config
}

// NewSummarizer creates a summarizer; a disabled config yields a no-op summarizer
func NewSummarizer(config Config, sources SourceLookup) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, sources: sources, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Summarize produces the narrative summary. Provider failures degrade to a
// summary carrying warnings; a disabled summarizer returns nil.
func (s *Summarizer) Summarize(ctx context.Context, report *model.EcosystemReport) (*model.LLMSummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	if !s.provider.IsAvailable(ctx) {
		return &model.LLMSummary{
			Enabled:        false,
			Provider:       s.provider.Name(),
			StrictEvidence: s.config.StrictEvidence,
			Warnings:       []string{fmt.Sprintf("LLM provider %s is not available", s.provider.Name())},
		}, nil
	}

	urls, err := s.EvidenceURLs(ctx, report)
	if err != nil {
		return nil, err
	}

	summary := &model.LLMSummary{
		Enabled:        true,
		Provider:       s.provider.Name(),
		Model:          s.config.Model,
		StrictEvidence: s.config.StrictEvidence,
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:       report,
		EvidenceURLs: urls,
		Model:        s.config.Model,
		MaxTokens:    s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictEvidence {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d citations against %d allowed source URLs", len(resp.CitedURLs), len(urls)))
	}
	return summary, nil
}

// EvidenceURLs collects the URLs of every source the report names, in the
// order they first appear. Sources without a URL are skipped.
func (s *Summarizer) EvidenceURLs(ctx context.Context, report *model.EcosystemReport) ([]string, error) {
	var ids []int64
	for _, r := range report.TopSources {
		ids = append(ids, r.SourceID)
	}
	for _, r := range report.BottomSources {
		ids = append(ids, r.SourceID)
	}
	if n := report.Network; n != nil {
		for _, g := range n.Gateways {
			ids = append(ids, g.SourceID)
		}
		for _, b := range n.Bottlenecks {
			ids = append(ids, b.SourceID)
		}
		for _, a := range n.TopAmplifiers {
			ids = append(ids, a.SourceID)
		}
	}
	if c := report.Coordination; c != nil {
		for _, f := range c.TopSources {
			ids = append(ids, f.SourceID)
		}
	}

	if s.sources == nil {
		return nil, nil
	}

	seenID := make(map[int64]bool)
	seenURL := make(map[string]bool)
	var urls []string
	for _, id := range ids {
		if seenID[id] {
			continue
		}
		seenID[id] = true

		src, err := s.sources.Source(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load source %d: %w", id, err)
		}
		u := strings.TrimSpace(src.URL)
		if u != "" && !seenURL[u] {
			seenURL[u] = true
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// RenderSeparateMarkdown renders the summary as a standalone markdown
// document, or "" when there is nothing to show
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** Every score in the report was determined independently of this summary.\n\n")
	fmt.Fprintf(&b, "- **Provider:** %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Evidence Mode:** %t\n\n", summary.StrictEvidence)

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
