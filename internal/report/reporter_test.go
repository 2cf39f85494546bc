package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/forensia/internal/cache"
	"github.com/ppiankov/forensia/internal/coordination"
	"github.com/ppiankov/forensia/internal/influence"
	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/provenance"
	"github.com/ppiankov/forensia/internal/reputation"
	"github.com/ppiankov/forensia/internal/store/storetest"
)

type fixture struct {
	b          *storetest.Builder
	rep        *reputation.Engine
	inf        *influence.Engine
	coord      *coordination.Engine
	prov       *provenance.Engine
	s1, s2, s3 int64
}

// newFixture builds three sources citing two claims and runs every pass once
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	b := storetest.NewBuilder(t)

	f := &fixture{b: b}
	f.s1 = b.Source("Origin wire", 0.9)
	f.s2 = b.Source("Regional paper", 0.6)
	f.s3 = b.Source("Aggregator", 0.3)

	c1 := b.Claim("reservoir levels fell below the summer threshold", 0.8)
	c2 := b.Claim("water rationing starts next month", 0.7)

	b.Cite(f.s1, c1, model.RelSupports, 0)
	b.Cite(f.s2, c1, model.RelSupports, 10*time.Minute)
	b.Cite(f.s3, c1, model.RelReferences, 20*time.Minute)
	b.Cite(f.s1, c2, model.RelSupports, time.Hour)
	b.Cite(f.s2, c2, model.RelContradicts, 2*time.Hour)

	f.rep = reputation.NewEngine(b.Store, reputation.WithClock(storetest.Clock()))
	f.inf = influence.NewEngine(b.Store, influence.WithClock(storetest.Clock()))
	f.coord = coordination.NewEngine(b.Store, coordination.WithClock(storetest.Clock()))
	f.prov = provenance.NewEngine(b.Store, provenance.WithClock(storetest.Clock()))

	_, err := f.rep.SnapshotAll(ctx)
	require.NoError(t, err)
	_, err = f.inf.BuildEdges(ctx)
	require.NoError(t, err)
	_, err = f.coord.Scan(ctx, 24)
	require.NoError(t, err)
	_, err = f.prov.TraceAll(ctx)
	require.NoError(t, err)
	return f
}

func (f *fixture) reporter(opts ...Option) *Reporter {
	opts = append([]Option{WithClock(func() time.Time { return storetest.Base.Add(48 * time.Hour) })}, opts...)
	return NewReporter(f.b.Store, f.rep, f.inf, f.coord, f.prov, opts...)
}

func TestEcosystem_EndToEnd(t *testing.T) {
	f := newFixture(t)
	r := f.reporter()

	rep, err := r.Ecosystem(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, rep.SourceCount)
	assert.GreaterOrEqual(t, rep.Health, 0.0)
	assert.LessOrEqual(t, rep.Health, 1.0)
	assert.Len(t, rep.Signals, 4)
	assert.NotEmpty(t, rep.Grade)

	require.NotNil(t, rep.Reputation)
	total := 0
	for _, n := range rep.Reputation.GradeDistribution {
		total += n
	}
	assert.Equal(t, 3, total)

	require.Len(t, rep.TopSources, 3)
	require.Len(t, rep.BottomSources, 3)
	assert.Equal(t, rep.TopSources[0].SourceID, rep.BottomSources[2].SourceID)
	assert.Equal(t, rep.TopSources[2].SourceID, rep.BottomSources[0].SourceID)
	assert.GreaterOrEqual(t, rep.TopSources[0].ReliabilityIndex, rep.TopSources[2].ReliabilityIndex)

	require.NotNil(t, rep.Network)
	assert.Equal(t, 3, rep.Network.TotalSources)
	require.NotNil(t, rep.Coordination)
	assert.Equal(t, 2, rep.Coordination.TotalEvents)
	require.NotNil(t, rep.Provenance)
	assert.Equal(t, 2, rep.Provenance.TotalTraced)
}

func TestEcosystem_EmptyStore(t *testing.T) {
	b := storetest.NewBuilder(t)
	r := NewReporter(b.Store,
		reputation.NewEngine(b.Store), influence.NewEngine(b.Store),
		coordination.NewEngine(b.Store), provenance.NewEngine(b.Store))

	rep, err := r.Ecosystem(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, rep.SourceCount)
	require.NotNil(t, rep.Reputation)
	assert.Equal(t, 0.0, rep.Reputation.MeanReliability)
	assert.Empty(t, rep.TopSources)
	assert.Empty(t, rep.BottomSources)
	assert.GreaterOrEqual(t, rep.Health, 0.0)
	assert.LessOrEqual(t, rep.Health, 1.0)
}

func TestSummarizeReputation_UpperMedian(t *testing.T) {
	profiles := []model.ReputationProfile{
		{ReliabilityIndex: 0.9, Grade: model.GradeA},
		{ReliabilityIndex: 0.7, Grade: model.GradeC},
		{ReliabilityIndex: 0.5, Grade: model.GradeD},
		{ReliabilityIndex: 0.1, Grade: model.GradeF},
	}

	s := summarizeReputation(profiles)
	assert.InDelta(t, 0.55, s.MeanReliability, 1e-12)
	assert.Equal(t, 0.7, s.MedianReliability)
	assert.Equal(t, 1, s.GradeDistribution[model.GradeA])
	assert.Equal(t, 0, s.GradeDistribution[model.GradeB])
}

func TestTopAndBottom_Windows(t *testing.T) {
	var profiles []model.ReputationProfile
	for i := int64(1); i <= 8; i++ {
		profiles = append(profiles, model.ReputationProfile{SourceID: i})
	}

	top, bottom := topAndBottom(profiles)
	require.Len(t, top, 5)
	require.Len(t, bottom, 5)
	assert.Equal(t, int64(1), top[0].SourceID)
	assert.Equal(t, int64(5), top[4].SourceID)
	assert.Equal(t, int64(8), bottom[0].SourceID)
	assert.Equal(t, int64(4), bottom[4].SourceID)
}

func TestSourceReport_Sections(t *testing.T) {
	f := newFixture(t)
	r := f.reporter()
	ctx := context.Background()

	rep, err := r.SourceReport(ctx, f.s1)
	require.NoError(t, err)
	assert.Equal(t, "Origin wire", rep.Title)

	require.NotNil(t, rep.Reputation)
	assert.Equal(t, 2, rep.Reputation.SupportCount)

	require.NotNil(t, rep.Influence)
	assert.Equal(t, 2, rep.Influence.Outgoing)
	assert.Equal(t, 0, rep.Influence.Incoming)
	assert.Greater(t, rep.Influence.TotalAmplification, 0.0)
	assert.Len(t, rep.Influence.Influences, 2)

	require.NotNil(t, rep.Provenance)
	assert.Equal(t, 2, rep.Provenance.Originated)
	assert.Equal(t, 2, rep.Provenance.Referenced)

	agg, err := r.SourceReport(ctx, f.s3)
	require.NoError(t, err)
	require.NotNil(t, agg.Coordination)
	assert.Equal(t, 1, agg.Coordination.EventCount)
	assert.Equal(t, []model.Pattern{model.PatternSimultaneous}, agg.Coordination.Patterns)
	assert.Equal(t, 0, agg.Provenance.Originated)
	assert.Equal(t, 1, agg.Provenance.Referenced)
	assert.Equal(t, 2, agg.Influence.Incoming)
}

func TestSourceReport_UnknownSource(t *testing.T) {
	f := newFixture(t)

	rep, err := f.reporter().SourceReport(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rep.Title)
	assert.Equal(t, "unknown", rep.SourceType)
	require.NotNil(t, rep.Influence)
	assert.Equal(t, 0, rep.Influence.Outgoing)
}

type failingReputation struct{}

func (failingReputation) Profile(context.Context, int64) (*model.ReputationProfile, error) {
	return nil, errors.New("snapshot table locked")
}

func (failingReputation) Rank(context.Context) ([]model.ReputationProfile, error) {
	return nil, errors.New("snapshot table locked")
}

func TestEcosystem_FailedSectionIsNeutral(t *testing.T) {
	f := newFixture(t)
	r := NewReporter(f.b.Store, failingReputation{}, f.inf, f.coord, f.prov)

	rep, err := r.Ecosystem(context.Background())
	require.NoError(t, err)

	assert.Nil(t, rep.Reputation)
	assert.Empty(t, rep.TopSources)
	assert.NotNil(t, rep.Network)
	assert.Equal(t, model.SignalMissingData, rep.Signals[0].Type)
	assert.GreaterOrEqual(t, rep.Health, 0.0)

	src, err := r.SourceReport(context.Background(), f.s1)
	require.NoError(t, err)
	assert.Nil(t, src.Reputation)
	assert.NotNil(t, src.Influence)

	_, err = r.QuickSource(context.Background(), f.s1)
	assert.Error(t, err)
}

type countingProvenance struct {
	ProvenanceAnalyzer
	calls int
}

func (c *countingProvenance) Summary(ctx context.Context) (*model.ProvenanceSummary, error) {
	c.calls++
	return c.ProvenanceAnalyzer.Summary(ctx)
}

func TestGenerateData_CachesPerRevision(t *testing.T) {
	f := newFixture(t)
	prov := &countingProvenance{ProvenanceAnalyzer: f.prov}
	r := NewReporter(f.b.Store, f.rep, f.inf, f.coord, prov,
		WithCache(cache.NewMemoryCache(time.Minute, time.Minute), "", 0))
	ctx := context.Background()

	first, err := r.GenerateData(ctx, 0)
	require.NoError(t, err)
	second, err := r.GenerateData(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, prov.calls, "second call served from cache")
	assert.Equal(t, first.(*model.EcosystemReport).Health, second.(*model.EcosystemReport).Health)

	f.b.Source("Late arrival", 0.5)
	_, err = r.GenerateData(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, prov.calls, "new revision rebuilds")

	data, err := r.GenerateData(ctx, f.s1)
	require.NoError(t, err)
	_, ok := data.(*model.SourceReport)
	assert.True(t, ok)
}

func TestGenerateData_SharedCacheKeepsStoresApart(t *testing.T) {
	shared := cache.NewLayeredCache(time.Minute, t.TempDir(), time.Hour)
	ctx := context.Background()

	build := func(title, scope string) (*Reporter, int64) {
		b := storetest.NewBuilder(t)
		id := b.Source(title, 0.7)
		return NewReporter(b.Store,
			reputation.NewEngine(b.Store), influence.NewEngine(b.Store),
			coordination.NewEngine(b.Store), provenance.NewEngine(b.Store),
			WithCache(shared, scope, time.Minute)), id
	}
	// both stores sit at the same revision and assign the same source id
	storeA, idA := build("Store A source", "/data/a.db")
	storeB, idB := build("Store B source", "/data/b.db")
	require.Equal(t, idA, idB)

	first, err := storeA.GenerateData(ctx, idA)
	require.NoError(t, err)
	assert.Equal(t, "Store A source", first.(*model.SourceReport).Title)

	second, err := storeB.GenerateData(ctx, idB)
	require.NoError(t, err)
	assert.Equal(t, "Store B source", second.(*model.SourceReport).Title)

	unscoped, id := build("Unscoped source", "")
	third, err := unscoped.GenerateData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Unscoped source", third.(*model.SourceReport).Title)
}

func TestGenerate_Narratives(t *testing.T) {
	f := newFixture(t)
	r := f.reporter()
	ctx := context.Background()

	eco, err := r.Generate(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, eco, "SOURCE FORENSICS REPORT – ECOSYSTEM ANALYSIS")
	for _, heading := range []string{
		"1. ECOSYSTEM OVERVIEW", "2. REPUTATION DISTRIBUTION", "3. TOP RELIABLE SOURCES",
		"4. LOWEST RELIABILITY SOURCES", "5. INFLUENCE NETWORK", "6. COORDINATION ANALYSIS",
		"7. PROVENANCE ANALYSIS",
	} {
		assert.Contains(t, eco, heading)
	}
	assert.Contains(t, eco, "Generated: ")
	assert.NotContains(t, eco, "NARRATIVE SUMMARY")

	src, err := r.Generate(ctx, f.s1)
	require.NoError(t, err)
	assert.Contains(t, src, "SOURCE FORENSICS REPORT – Source #1")
	assert.Contains(t, src, "-> Source #2 (shared: 2)")
	assert.True(t, strings.HasPrefix(src, strings.Repeat("=", 70)))
}

func TestQuickLine_Format(t *testing.T) {
	p := &model.ReputationProfile{
		SourceID:         7,
		SourceTitle:      "An exceptionally long source title that will be cut",
		Grade:            model.GradeB,
		ReliabilityIndex: 0.8123,
		CurrentEMA:       0.75,
		Accuracy:         0.5,
		Trend:            model.TrendImproving,
		TotalClaims:      4,
	}

	assert.Equal(t,
		`Source #7 [B] reliability=0.8123 ema=0.7500 accuracy=0.5000 trend=improving claims=4 title="An exceptionally long source title that "`,
		QuickLine(p))
}

type stubSummarizer struct {
	err error
}

func (s stubSummarizer) Summarize(context.Context, *model.EcosystemReport) (*model.LLMSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.LLMSummary{Enabled: true, Provider: "stub", StrictEvidence: true, SummaryMD: "All quiet."}, nil
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep, err := f.reporter().Ecosystem(ctx)
	require.NoError(t, err)
	health := rep.Health

	f.reporter().Summarize(ctx, rep)
	require.NotNil(t, rep.LLM)
	assert.False(t, rep.LLM.Enabled)

	f.reporter(WithSummarizer(stubSummarizer{})).Summarize(ctx, rep)
	assert.Equal(t, "All quiet.", rep.LLM.SummaryMD)
	assert.Equal(t, health, rep.Health)
	assert.Contains(t, RenderEcosystem(rep), "8. NARRATIVE SUMMARY")

	f.reporter(WithSummarizer(stubSummarizer{err: errors.New("rate limited")})).Summarize(ctx, rep)
	assert.True(t, rep.LLM.Enabled)
	require.Len(t, rep.LLM.Warnings, 1)
	assert.Contains(t, rep.LLM.Warnings[0], "rate limited")
}
