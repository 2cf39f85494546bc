// Package report combines the four analyzers into per-source and
// ecosystem-wide forensic reports.
//
// A failing analyzer never fails a report: its section is left empty, a
// warning is logged and the health score falls back to a neutral value.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/forensia/internal/cache"
	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/score"
	"github.com/ppiankov/forensia/internal/store"
	"github.com/ppiankov/forensia/internal/telemetry"
)

const (
	rankedSources = 5
	neighborLimit = 10
	quickTitleLen = 40
)

// ReputationAnalyzer is the reputation surface the reporter reads
type ReputationAnalyzer interface {
	Profile(ctx context.Context, sourceID int64) (*model.ReputationProfile, error)
	Rank(ctx context.Context) ([]model.ReputationProfile, error)
}

// InfluenceAnalyzer is the influence surface the reporter reads
type InfluenceAnalyzer interface {
	AnalyzeNetwork(ctx context.Context) (*model.NetworkProfile, error)
	InfluenceOn(ctx context.Context, sourceID int64) ([]model.InfluenceEdge, error)
	InfluencedBy(ctx context.Context, sourceID int64) ([]model.InfluenceEdge, error)
}

// CoordinationAnalyzer is the coordination surface the reporter reads
type CoordinationAnalyzer interface {
	Summary(ctx context.Context) (*model.CoordinationSummary, error)
	Events(ctx context.Context, minScore float64, limit int) ([]model.CoordinationEvent, error)
}

// ProvenanceAnalyzer is the provenance surface the reporter reads
type ProvenanceAnalyzer interface {
	Summary(ctx context.Context) (*model.ProvenanceSummary, error)
}

// Summarizer produces an optional narrative of an ecosystem report
type Summarizer interface {
	Summarize(ctx context.Context, report *model.EcosystemReport) (*model.LLMSummary, error)
}

// Reporter builds forensic reports from the analyzers
type Reporter struct {
	store        store.Store
	reputation   ReputationAnalyzer
	influence    InfluenceAnalyzer
	coordination CoordinationAnalyzer
	provenance   ProvenanceAnalyzer

	scorer     *score.Scorer
	cache      cache.Cache
	cacheScope string
	cacheTTL   time.Duration
	summarizer Summarizer
	sections   int
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Reporter
type Option func(*Reporter)

// WithCache caches structured reports keyed by store identity and revision.
// scope names the store (its absolute path); an empty scope gets a random
// one, so entries are never shared with another reporter.
func WithCache(c cache.Cache, scope string, ttl time.Duration) Option {
	return func(r *Reporter) {
		if scope == "" {
			scope = uuid.NewString()
		}
		r.cache = c
		r.cacheScope = scope
		r.cacheTTL = ttl
	}
}

// WithSummarizer enables the optional ecosystem narrative
func WithSummarizer(s Summarizer) Option {
	return func(r *Reporter) { r.summarizer = s }
}

// WithConcurrency bounds how many sections are gathered at once
func WithConcurrency(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.sections = n
		}
	}
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithLogger sets the reporter's logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// NewReporter wires the analyzers into a reporter
func NewReporter(s store.Store, rep ReputationAnalyzer, inf InfluenceAnalyzer, coord CoordinationAnalyzer, prov ProvenanceAnalyzer, opts ...Option) *Reporter {
	r := &Reporter{
		store:        s,
		reputation:   rep,
		influence:    inf,
		coordination: coord,
		provenance:   prov,
		scorer:       score.NewScorer(),
		sections:     4,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// sectionFailed logs a failed analyzer; the section stays empty
func (r *Reporter) sectionFailed(section string, err error) {
	r.logger.Warn("report section unavailable", slog.String("section", section), slog.Any("error", err))
}

// SourceReport gathers every analyzer's view of one source. An unknown
// source still yields a report titled "Unknown".
func (r *Reporter) SourceReport(ctx context.Context, sourceID int64) (*model.SourceReport, error) {
	rep := &model.SourceReport{
		SourceID:    sourceID,
		Title:       "Unknown",
		SourceType:  "unknown",
		GeneratedAt: r.now(),
	}

	src, err := r.store.Source(ctx, sourceID)
	switch {
	case err == nil:
		rep.Title = src.Title
		rep.SourceType = string(src.Type)
		rep.Platform = src.Platform
		rep.Author = src.Author
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load source %d: %w", sourceID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.sections)

	g.Go(func() error {
		profile, err := r.reputation.Profile(gctx, sourceID)
		if err != nil {
			r.sectionFailed("reputation", err)
			return nil
		}
		rep.Reputation = profile
		return nil
	})
	g.Go(func() error {
		section, err := r.influenceSection(gctx, sourceID)
		if err != nil {
			r.sectionFailed("influence", err)
			return nil
		}
		rep.Influence = section
		return nil
	})
	g.Go(func() error {
		section, err := r.coordinationSection(gctx, sourceID)
		if err != nil {
			r.sectionFailed("coordination", err)
			return nil
		}
		rep.Coordination = section
		return nil
	})
	g.Go(func() error {
		section, err := r.provenanceSection(gctx, sourceID)
		if err != nil {
			r.sectionFailed("provenance", err)
			return nil
		}
		rep.Provenance = section
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *Reporter) influenceSection(ctx context.Context, sourceID int64) (*model.InfluenceSection, error) {
	outgoing, err := r.influence.InfluenceOn(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	incoming, err := r.influence.InfluencedBy(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	section := &model.InfluenceSection{
		Outgoing:     len(outgoing),
		Incoming:     len(incoming),
		Influences:   []model.Neighbor{},
		InfluencedBy: []model.Neighbor{},
	}
	for i, e := range outgoing {
		section.TotalAmplification += e.Amplification
		if i < neighborLimit {
			section.Influences = append(section.Influences, model.Neighbor{SourceID: e.ToSourceID, Shared: e.SharedClaims})
		}
	}
	for i, e := range incoming {
		if i >= neighborLimit {
			break
		}
		section.InfluencedBy = append(section.InfluencedBy, model.Neighbor{SourceID: e.FromSourceID, Shared: e.SharedClaims})
	}
	return section, nil
}

func (r *Reporter) coordinationSection(ctx context.Context, sourceID int64) (*model.CoordinationSection, error) {
	events, err := r.coordination.Events(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	section := &model.CoordinationSection{Patterns: []model.Pattern{}}
	seen := make(map[model.Pattern]bool)
	for _, ev := range events {
		if !ev.Involves(sourceID) {
			continue
		}
		section.EventCount++
		if !seen[ev.Pattern] {
			seen[ev.Pattern] = true
			section.Patterns = append(section.Patterns, ev.Pattern)
		}
	}
	sort.Slice(section.Patterns, func(i, j int) bool { return section.Patterns[i] < section.Patterns[j] })
	return section, nil
}

// provenanceSection counts the source's direct claim links: supports links
// from the source originate a claim, any link in either direction references one
func (r *Reporter) provenanceSection(ctx context.Context, sourceID int64) (*model.ProvenanceSection, error) {
	links, err := r.store.Links(ctx, store.LinkFilter{
		Touching:  &store.NodeRef{Kind: model.NodeSource, ID: sourceID},
		OtherKind: model.NodeClaim,
	})
	if err != nil {
		return nil, err
	}

	section := &model.ProvenanceSection{Referenced: len(links)}
	for _, l := range links {
		if l.FromType == model.NodeSource && l.Relationship == model.RelSupports {
			section.Originated++
		}
	}
	return section, nil
}

// Ecosystem gathers the ecosystem-wide report and scores its health
func (r *Reporter) Ecosystem(ctx context.Context) (*model.EcosystemReport, error) {
	sources, err := r.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	rep := &model.EcosystemReport{
		SourceCount:   len(sources),
		GeneratedAt:   r.now(),
		TopSources:    []model.RankedSource{},
		BottomSources: []model.RankedSource{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.sections)

	g.Go(func() error {
		profiles, err := r.reputation.Rank(gctx)
		if err != nil {
			r.sectionFailed("reputation", err)
			return nil
		}
		rep.Reputation = summarizeReputation(profiles)
		rep.TopSources, rep.BottomSources = topAndBottom(profiles)
		return nil
	})
	g.Go(func() error {
		network, err := r.influence.AnalyzeNetwork(gctx)
		if err != nil {
			r.sectionFailed("network", err)
			return nil
		}
		rep.Network = network
		return nil
	})
	g.Go(func() error {
		summary, err := r.coordination.Summary(gctx)
		if err != nil {
			r.sectionFailed("coordination", err)
			return nil
		}
		rep.Coordination = summary
		return nil
	})
	g.Go(func() error {
		summary, err := r.provenance.Summary(gctx)
		if err != nil {
			r.sectionFailed("provenance", err)
			return nil
		}
		rep.Provenance = summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.Health, rep.Signals = r.scorer.Health(score.HealthInputs{
		SourceCount:  rep.SourceCount,
		Reputation:   rep.Reputation,
		Network:      rep.Network,
		Coordination: rep.Coordination,
		Provenance:   rep.Provenance,
	})
	rep.Grade = score.GradeFor(rep.Health)
	telemetry.ObserveHealth(rep.Health)

	r.logger.Info("ecosystem report built",
		slog.Int("sources", rep.SourceCount),
		slog.Float64("health", rep.Health),
		slog.String("grade", string(rep.Grade)))
	return rep, nil
}

// summarizeReputation builds the grade histogram and the mean and upper
// median of reliability indices
func summarizeReputation(profiles []model.ReputationProfile) *model.ReputationSummary {
	summary := &model.ReputationSummary{GradeDistribution: map[model.Grade]int{}}
	if len(profiles) == 0 {
		return summary
	}

	indices := make([]float64, 0, len(profiles))
	total := 0.0
	for _, p := range profiles {
		summary.GradeDistribution[p.Grade]++
		indices = append(indices, p.ReliabilityIndex)
		total += p.ReliabilityIndex
	}
	sort.Float64s(indices)
	summary.MeanReliability = total / float64(len(indices))
	summary.MedianReliability = indices[len(indices)/2]
	return summary
}

// topAndBottom takes ranked profiles (best first) and returns the best five
// and the worst five, worst first
func topAndBottom(profiles []model.ReputationProfile) ([]model.RankedSource, []model.RankedSource) {
	ranked := func(p model.ReputationProfile) model.RankedSource {
		return model.RankedSource{
			SourceID:         p.SourceID,
			Title:            p.SourceTitle,
			ReliabilityIndex: p.ReliabilityIndex,
			Grade:            p.Grade,
		}
	}

	top := make([]model.RankedSource, 0, rankedSources)
	for i := 0; i < len(profiles) && i < rankedSources; i++ {
		top = append(top, ranked(profiles[i]))
	}

	bottom := make([]model.RankedSource, 0, rankedSources)
	for i := len(profiles) - 1; i >= 0 && i >= len(profiles)-rankedSources; i-- {
		bottom = append(bottom, ranked(profiles[i]))
	}
	return top, bottom
}

// Summarize attaches the optional narrative summary. Without a summarizer
// the report is marked disabled; a summarizer failure becomes a warning.
func (r *Reporter) Summarize(ctx context.Context, rep *model.EcosystemReport) {
	if r.summarizer == nil {
		rep.LLM = &model.LLMSummary{Enabled: false, StrictEvidence: true}
		return
	}
	summary, err := r.summarizer.Summarize(ctx, rep)
	if err != nil {
		r.logger.Warn("narrative summary failed", slog.Any("error", err))
		rep.LLM = &model.LLMSummary{
			Enabled:        true,
			StrictEvidence: true,
			Warnings:       []string{fmt.Sprintf("summary failed: %v", err)},
		}
		return
	}
	if summary == nil {
		summary = &model.LLMSummary{Enabled: false, StrictEvidence: true}
	}
	rep.LLM = summary
}

// GenerateData returns the structured report: *model.SourceReport for a
// source id > 0, *model.EcosystemReport for 0
func (r *Reporter) GenerateData(ctx context.Context, sourceID int64) (interface{}, error) {
	if sourceID > 0 {
		key := r.cacheKey(ctx, "source", sourceID)
		var hit model.SourceReport
		if r.lookup(key, &hit) {
			return &hit, nil
		}
		rep, err := r.SourceReport(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		r.remember(key, rep)
		return rep, nil
	}

	key := r.cacheKey(ctx, "ecosystem", 0)
	var hit model.EcosystemReport
	if r.lookup(key, &hit) {
		return &hit, nil
	}
	rep, err := r.Ecosystem(ctx)
	if err != nil {
		return nil, err
	}
	r.remember(key, rep)
	return rep, nil
}

// Generate returns the narrative report for a source id > 0, or the
// ecosystem narrative for 0
func (r *Reporter) Generate(ctx context.Context, sourceID int64) (string, error) {
	data, err := r.GenerateData(ctx, sourceID)
	if err != nil {
		return "", err
	}
	switch rep := data.(type) {
	case *model.SourceReport:
		return RenderSource(rep), nil
	case *model.EcosystemReport:
		return RenderEcosystem(rep), nil
	default:
		return "", fmt.Errorf("unexpected report type %T", data)
	}
}

// cacheKey ties a report to the current store revision. Empty means no caching.
func (r *Reporter) cacheKey(ctx context.Context, kind string, id int64) string {
	if r.cache == nil {
		return ""
	}
	stats, err := r.store.Stats(ctx)
	if err != nil {
		r.logger.Warn("report cache disabled for request", slog.Any("error", err))
		return ""
	}
	return cache.ReportKey(r.cacheScope, kind, id, stats.Revision())
}

func (r *Reporter) lookup(key string, dst interface{}) bool {
	if key == "" {
		return false
	}
	if cache.GetJSON(r.cache, key, dst) {
		r.logger.Debug("report cache hit", slog.String("key", key))
		return true
	}
	return false
}

func (r *Reporter) remember(key string, rep interface{}) {
	if key == "" {
		return
	}
	if err := cache.SetJSON(r.cache, key, rep, r.cacheTTL); err != nil {
		r.logger.Warn("report cache write failed", slog.Any("error", err))
	}
}

// QuickSource renders a one-line summary of a source's reputation
func (r *Reporter) QuickSource(ctx context.Context, sourceID int64) (string, error) {
	p, err := r.reputation.Profile(ctx, sourceID)
	if err != nil {
		return "", fmt.Errorf("profile source %d: %w", sourceID, err)
	}
	return QuickLine(p), nil
}

// QuickLine formats a profile as a single line
func QuickLine(p *model.ReputationProfile) string {
	title := []rune(p.SourceTitle)
	if len(title) > quickTitleLen {
		title = title[:quickTitleLen]
	}
	return fmt.Sprintf("Source #%d [%s] reliability=%.4f ema=%.4f accuracy=%.4f trend=%s claims=%d title=%q",
		p.SourceID, p.Grade, p.ReliabilityIndex, p.CurrentEMA, p.Accuracy, p.Trend, p.TotalClaims, string(title))
}
