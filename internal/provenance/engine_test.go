package provenance

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
	"github.com/ppiankov/forensia/internal/store/storetest"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the plant was closed", "the plant was closed", 1},
		{"case insensitive", "The Plant", "the plant", 1},
		{"empty side", "", "words here", 0},
		{"both empty", "", "", 0},
		{"disjoint", "alpha beta", "gamma delta", 0},
		{"half", "a b c", "a b d", 0.5},
		{"duplicates collapse", "a a a b", "a b", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if sym := Jaccard(tt.b, tt.a); math.Abs(sym-got) > 1e-12 {
				t.Errorf("Jaccard is not symmetric: %v vs %v", got, sym)
			}
		})
	}
}

func TestConfidence_DecaysWithDepth(t *testing.T) {
	prev := Confidence(0.8, 0, DefaultDecay)
	assert.InDelta(t, 0.8, prev, 1e-12)

	for hops := 1; hops <= 25; hops++ {
		c := Confidence(0.8, hops, DefaultDecay)
		if c > prev {
			t.Fatalf("confidence rose from %v to %v at %d hops", prev, c, hops)
		}
		prev = c
	}
	assert.Equal(t, 1.0, Confidence(3, 0, DefaultDecay), "clamped")
}

func TestTrace_OriginalWithMostCredibleSource(t *testing.T) {
	b := storetest.NewBuilder(t)
	ctx := context.Background()

	s1 := b.Source("Lab report", 0.9)
	s2 := b.Source("Forum post", 0.3)
	c1 := b.Claim("sample contained isotope", 0.8)
	b.Cite(s1, c1, model.RelSupports, 0)
	b.Cite(s2, c1, model.RelReferences, 10*time.Minute)

	engine := NewEngine(b.Store, WithClock(storetest.Clock()))
	trace, err := engine.Trace(ctx, c1)
	require.NoError(t, err)

	assert.Equal(t, model.OriginOriginal, trace.OriginType)
	assert.Equal(t, c1, trace.RootClaimID)
	assert.Equal(t, s1, trace.OriginSourceID)
	assert.Equal(t, "Lab report", trace.OriginSource)
	assert.Equal(t, 1, trace.ChainDepth)
	assert.Equal(t, 0, trace.MutationDepth)
	assert.InDelta(t, 0.8*0.85, trace.Confidence, 1e-12)
	assert.Equal(t, []model.Hop{
		{Kind: model.NodeClaim, ID: c1, Label: "sample contained isotope"},
		{Kind: model.NodeSource, ID: s1, Label: "Lab report"},
	}, trace.Path)
	assert.NotZero(t, trace.ID)
}

func TestTrace_FollowsSourceReferences(t *testing.T) {
	b := storetest.NewBuilder(t)
	ctx := context.Background()

	press := b.Source("Press release", 0.6)
	wire := b.Source("Wire copy", 0.5)
	filing := b.Source("Court filing", 0.95)
	c := b.Claim("merger approved", 0.9)
	b.Cite(press, c, model.RelSupports, 0)

	b.Link(model.NodeSource, press, model.NodeSource, wire, model.RelDerivesFrom, "")
	b.Link(model.NodeSource, wire, model.NodeSource, filing, model.RelReferences, "")
	b.Link(model.NodeSource, filing, model.NodeSource, press, model.RelReferences, "") // cycle back
	b.Link(model.NodeSource, wire, model.NodeSource, press, model.RelSupports, "")     // wrong relationship

	trace, err := NewEngine(b.Store).Trace(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, 3, trace.SourceDepth)
	assert.Equal(t, filing, trace.OriginSourceID)
	assert.Equal(t, "Court filing", trace.OriginSource)
	assert.InDelta(t, 0.9*math.Pow(0.85, 3), trace.Confidence, 1e-12)
}

func TestTrace_CredibilityTieBreaksOnLowestID(t *testing.T) {
	b := storetest.NewBuilder(t)
	first := b.Source("First", 0.7)
	second := b.Source("Second", 0.7)
	c := b.Claim("tied", 0.5)
	b.Cite(second, c, model.RelSupports, 0)
	b.Cite(first, c, model.RelSupports, time.Minute)

	trace, err := NewEngine(b.Store).Trace(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, first, trace.OriginSourceID)
}

func TestTrace_MutatedChain(t *testing.T) {
	b := storetest.NewBuilder(t)
	ctx := context.Background()

	src := b.Source("Original study", 0.8)
	c5 := b.Claim("trial showed modest benefit in older patients", 0.7)
	b.Cite(src, c5, model.RelSupports, 0)
	c6 := b.Revision(c5, "trial showed benefit in all patients", 0.6)
	c7 := b.Revision(c6, "miracle cure works for everyone", 0.4)

	trace, err := NewEngine(b.Store).Trace(ctx, c7)
	require.NoError(t, err)

	assert.Equal(t, model.OriginMutated, trace.OriginType)
	assert.Equal(t, c5, trace.RootClaimID)
	assert.GreaterOrEqual(t, trace.ChainDepth, 2)
	assert.Equal(t, 2, trace.MutationDepth)
	assert.Equal(t, 3, trace.ChainDepth)
	assert.InDelta(t, 0.7*math.Pow(0.85, 3), trace.Confidence, 1e-12, "decays from the root's confidence")

	ids := make([]int64, 0, len(trace.Path))
	for _, h := range trace.Path {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []int64{c5, c6, c7, src}, ids)
}

func TestTrace_DerivedWhenTextStaysClose(t *testing.T) {
	b := storetest.NewBuilder(t)
	root := b.Claim("the bridge closed on monday for repairs", 0.8)
	edit := b.Revision(root, "the bridge closed on monday for urgent repairs", 0.8)

	trace, err := NewEngine(b.Store).Trace(context.Background(), edit)
	require.NoError(t, err)
	assert.Equal(t, model.OriginDerived, trace.OriginType)
}

func TestTrace_AmplifiedAndOrphan(t *testing.T) {
	b := storetest.NewBuilder(t)
	ctx := context.Background()

	echoed := b.Claim("unsourced rumor", 0.3)
	r1 := b.Claim("repeat one", 0.3)
	r2 := b.Claim("repeat two", 0.3)
	b.Link(model.NodeClaim, r1, model.NodeClaim, echoed, model.RelReferences, "")
	b.Link(model.NodeClaim, r2, model.NodeClaim, echoed, model.RelReferences, "")

	engine := NewEngine(b.Store)
	trace, err := engine.Trace(ctx, echoed)
	require.NoError(t, err)
	assert.Equal(t, model.OriginAmplified, trace.OriginType)

	trace, err = engine.Trace(ctx, r1)
	require.NoError(t, err)
	assert.Equal(t, model.OriginOrphan, trace.OriginType)
	assert.Zero(t, trace.OriginSourceID)
	assert.Zero(t, trace.ChainDepth)
}

func TestTrace_MutationCycleTerminates(t *testing.T) {
	b := storetest.NewBuilder(t)
	ctx := context.Background()

	// ids are assigned 1, 2 in an empty store: 1 -> 2 -> 1
	two, one := int64(2), int64(1)
	_, err := b.Store.AddClaim(ctx, &model.Claim{Text: "loop a", Confidence: 0.5, MutationParent: &two})
	require.NoError(t, err)
	_, err = b.Store.AddClaim(ctx, &model.Claim{Text: "loop b", Confidence: 0.5, MutationParent: &one})
	require.NoError(t, err)

	trace, err := NewEngine(b.Store).Trace(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, trace.MutationDepth)
	assert.Equal(t, int64(2), trace.RootClaimID)
}

func TestTrace_DepthCap(t *testing.T) {
	b := storetest.NewBuilder(t)
	current := b.Claim("generation 0", 0.9)
	for i := 0; i < 30; i++ {
		current = b.Revision(current, "generation", 0.9)
	}

	trace, err := NewEngine(b.Store).Trace(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDepth-1, trace.MutationDepth)

	capped, err := NewEngine(b.Store, WithMaxDepth(5)).Trace(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, 4, capped.MutationDepth)
}

func TestTrace_MissingParentEndsChain(t *testing.T) {
	b := storetest.NewBuilder(t)
	c := b.Revision(404, "parent was never collected", 0.5)

	trace, err := NewEngine(b.Store).Trace(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, c, trace.RootClaimID)
	assert.Zero(t, trace.MutationDepth)
}

func TestTrace_UnknownClaim(t *testing.T) {
	b := storetest.NewBuilder(t)

	_, err := NewEngine(b.Store).Trace(context.Background(), 77)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestTraceAllSummaryAndHistory(t *testing.T) {
	b := storetest.NewBuilder(t)
	ctx := context.Background()
	engine := NewEngine(b.Store, WithClock(storetest.Clock()))

	empty, err := engine.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalTraced)

	src := b.Source("Archive", 0.7)
	root := b.Claim("ledger shows transfer", 0.8)
	b.Cite(src, root, model.RelSupports, 0)
	leaf := b.Revision(root, "offshore account received secret payments", 0.5)
	b.Claim("nobody cites this", 0.2)

	traces, err := engine.TraceAll(ctx)
	require.NoError(t, err)
	require.Len(t, traces, 3)

	_, err = engine.Trace(ctx, leaf)
	require.NoError(t, err)

	summary, err := engine.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalTraced)
	assert.Equal(t, 1, summary.Origins[model.OriginOriginal])
	assert.Equal(t, 2, summary.Origins[model.OriginMutated])
	assert.Equal(t, 1, summary.OrphanCount)
	assert.Equal(t, 2, summary.MaxChainDepth)
	assert.InDelta(t, 5.0/4.0, summary.AvgChainDepth, 1e-12)
	require.NotEmpty(t, summary.DeepestChains)
	assert.Equal(t, leaf, summary.DeepestChains[0].ClaimID)

	history, err := engine.Traces(ctx, leaf, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].TracedAt.After(history[1].TracedAt), "newest first")
	assert.Equal(t, traces[1].Path, history[1].Path)
}
