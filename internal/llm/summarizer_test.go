package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
)

type mockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	lastReq   SummarizeRequest
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return m.available }

type mapSources map[int64]model.Source

func (m mapSources) Source(ctx context.Context, id int64) (*model.Source, error) {
	s, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("source %d: %w", id, store.ErrNotFound)
	}
	return &s, nil
}

func TestNewSummarizer_Disabled(t *testing.T) {
	s, err := NewSummarizer(Config{}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.IsEnabled() || s.ProviderName() != "" {
		t.Error("Expected summarizer to be disabled")
	}

	summary, err := s.Summarize(context.Background(), testReport())
	if err != nil || summary != nil {
		t.Errorf("disabled summarizer returned %v, %v", summary, err)
	}
}

func TestSummarizer_ProviderUnavailable(t *testing.T) {
	s := &Summarizer{provider: &mockProvider{name: "test-provider"}, config: Config{StrictEvidence: true}}

	summary, err := s.Summarize(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.Enabled {
		t.Error("Expected summary to be marked as disabled")
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Expected unavailability warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_Success(t *testing.T) {
	provider := &mockProvider{
		name:      "test-provider",
		available: true,
		response: &SummarizeResponse{
			Summary:    "Reliability is concentrated in one wire service.",
			CitedURLs:  []string{"https://wire.example/a"},
			Model:      "test-model",
			TokensUsed: 150,
		},
	}
	sources := mapSources{
		1: {ID: 1, URL: "https://wire.example/a"},
		2: {ID: 2},
		3: {ID: 3, URL: "https://blog.example/b"},
	}
	s := &Summarizer{provider: provider, sources: sources, config: Config{Model: "test-model", StrictEvidence: true}}

	report := testReport()
	report.BottomSources = []model.RankedSource{{SourceID: 3}, {SourceID: 2}, {SourceID: 1}}
	report.Network = &model.NetworkProfile{Gateways: []model.Gateway{{SourceID: 99}}}

	summary, err := s.Summarize(context.Background(), report)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !summary.Enabled || summary.Provider != "test-provider" || summary.Model != "test-model" {
		t.Errorf("unexpected summary header: %+v", summary)
	}
	if summary.SummaryMD != "Reliability is concentrated in one wire service." {
		t.Errorf("unexpected summary text %q", summary.SummaryMD)
	}

	want := []string{"https://wire.example/a", "https://blog.example/b"}
	got := provider.lastReq.EvidenceURLs
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("evidence URLs = %v, want %v", got, want)
	}

	joined := strings.Join(summary.Warnings, "\n")
	if !strings.Contains(joined, "Tokens used: 150") || !strings.Contains(joined, "Verified 1 citations") {
		t.Errorf("missing notes: %v", summary.Warnings)
	}
}

func TestSummarizer_ProviderError(t *testing.T) {
	provider := &mockProvider{name: "test-provider", available: true, err: errors.New("API rate limit exceeded")}
	s := &Summarizer{provider: provider, config: Config{StrictEvidence: true}}

	summary, err := s.Summarize(context.Background(), testReport())
	if err != nil {
		t.Errorf("Expected graceful degradation, got %v", err)
	}
	if !summary.Enabled {
		t.Error("Expected summary to be marked as enabled (but failed)")
	}
	if len(summary.Warnings) == 0 || !strings.Contains(summary.Warnings[0], "rate limit") {
		t.Errorf("Expected warning to mention error: %v", summary.Warnings)
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if RenderSeparateMarkdown(nil) != "" {
		t.Error("Expected empty markdown when nil")
	}
	if RenderSeparateMarkdown(&model.LLMSummary{Enabled: false}) != "" {
		t.Error("Expected empty markdown when disabled")
	}

	md := RenderSeparateMarkdown(&model.LLMSummary{
		Enabled:        true,
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		StrictEvidence: true,
		SummaryMD:      "This is the generated summary content.",
		Warnings:       []string{"Tokens used: 150"},
	})
	for _, part := range []string{
		"# LLM Summary", "GENERATED CONTENT", "determined independently",
		"openai", "gpt-4o-mini", "Strict Evidence Mode:** true",
		"This is the generated summary content.", "## Notes", "Tokens used: 150",
	} {
		if !strings.Contains(md, part) {
			t.Errorf("Expected markdown to contain %q", part)
		}
	}

	empty := RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "openai"})
	if !strings.Contains(empty, "No summary generated") {
		t.Error("Expected message about no summary")
	}
}

func TestBuildPrompt(t *testing.T) {
	report := testReport()
	report.Signals = []model.Signal{{Type: model.SignalReliability, Severity: model.SeverityWarning, Description: "mean reliability is low"}}

	prompt := BuildPrompt(report, []string{"https://wire.example/a"})
	for _, part := range []string{"https://wire.example/a", "Sources: 3", "62.0%", "Origin wire", "mean reliability is low"} {
		if !strings.Contains(prompt, part) {
			t.Errorf("prompt missing %q", part)
		}
	}
	if !strings.Contains(BuildPrompt(report, nil), "no source URLs available") {
		t.Error("expected placeholder for empty allowlist")
	}

	many := make([]string, 25)
	for i := range many {
		many[i] = fmt.Sprintf("https://s%d.example", i)
	}
	if !strings.Contains(BuildPrompt(report, many), "and 5 more URLs") {
		t.Error("expected truncated URL list")
	}
}
