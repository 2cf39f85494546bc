package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
)

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(MemoryPath, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestClaimRoundTripKeepsParentAndTags(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	root := &model.Claim{Text: "the bridge opened in 1932", Confidence: 0.8, Tags: []string{"infra", "history"}}
	_, err := repo.AddClaim(ctx, root)
	require.NoError(t, err)

	child := &model.Claim{Text: "the bridge opened in 1933", Confidence: 0.6, MutationParent: &root.ID}
	_, err = repo.AddClaim(ctx, child)
	require.NoError(t, err)

	got, err := repo.Claim(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MutationParent)
	assert.Equal(t, root.ID, *got.MutationParent)
	assert.Equal(t, model.ClaimTypeAssertion, got.Type)
	assert.Equal(t, "unverified", got.Verification)

	gotRoot, err := repo.Claim(ctx, root.ID)
	require.NoError(t, err)
	assert.False(t, gotRoot.HasParent())
	assert.Equal(t, []string{"infra", "history"}, gotRoot.Tags)

	all, err := repo.Claims(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMissingNodesReturnErrNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.Claim(ctx, 42)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = repo.Source(ctx, 42)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestLinksFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	add := func(ft model.NodeKind, fid int64, tt model.NodeKind, tid int64, rel model.Relationship, at string) {
		t.Helper()
		_, err := repo.AddLink(ctx, &model.EvidenceLink{FromType: ft, FromID: fid, ToType: tt, ToID: tid, Relationship: rel, CreatedAt: at})
		require.NoError(t, err)
	}
	add(model.NodeSource, 1, model.NodeClaim, 10, model.RelSupports, "2024-01-02T00:00:00Z")
	add(model.NodeClaim, 11, model.NodeSource, 1, model.RelContradicts, "2024-01-01T00:00:00Z")
	add(model.NodeSource, 1, model.NodeSource, 2, model.RelReferences, "2024-01-03T00:00:00Z")
	add(model.NodeSource, 2, model.NodeClaim, 10, model.RelRelated, "2024-01-04T00:00:00Z")
	add(model.NodeClaim, 10, model.NodeClaim, 11, model.RelDerivesFrom, "2024-01-05T00:00:00Z")

	tests := []struct {
		name   string
		filter store.LinkFilter
		want   []int64
	}{
		{"all", store.LinkFilter{}, []int64{1, 2, 3, 4, 5}},
		{"touching source 1", store.LinkFilter{Touching: &store.NodeRef{Kind: model.NodeSource, ID: 1}}, []int64{1, 2, 3}},
		{
			"touching source 1, claims only",
			store.LinkFilter{Touching: &store.NodeRef{Kind: model.NodeSource, ID: 1}, OtherKind: model.NodeClaim},
			[]int64{1, 2},
		},
		{"claim/source only", store.LinkFilter{ClaimSourceOnly: true}, []int64{1, 2, 4}},
		{
			"source lineage",
			store.LinkFilter{FromType: model.NodeSource, FromID: 1, ToType: model.NodeSource,
				Relationships: []model.Relationship{model.RelReferences, model.RelDerivesFrom}},
			[]int64{3},
		},
		{"ordered by time", store.LinkFilter{ClaimSourceOnly: true, Order: store.OrderByCreatedAt}, []int64{2, 1, 4}},
		{"limit", store.LinkFilter{Limit: 2}, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := repo.Links(ctx, tt.filter)
			require.NoError(t, err)
			var ids []int64
			for _, l := range links {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSnapshotsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := repo.InsertSnapshot(ctx, &model.ReputationSnapshot{
			SourceID:    7,
			Reliability: float64(i) / 10,
			Trend:       model.TrendFlat,
			ComputedAt:  base.Add(time.Duration(i) * time.Second).Add(time.Duration(i) * 100 * time.Millisecond),
		})
		require.NoError(t, err)
	}

	snaps, err := repo.Snapshots(ctx, 7, 3)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.InDelta(t, 0.3, snaps[0].Reliability, 1e-9)
	assert.InDelta(t, 0.1, snaps[2].Reliability, 1e-9)
	assert.True(t, snaps[0].ComputedAt.After(snaps[1].ComputedAt))
}

func TestAnalyticRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.InsertInfluenceEdge(ctx, &model.InfluenceEdge{RunID: "r1", FromSourceID: 1, ToSourceID: 2, SharedClaims: 3, Amplification: 0.5, CreatedAt: now})
	require.NoError(t, err)
	_, err = repo.InsertInfluenceEdge(ctx, &model.InfluenceEdge{RunID: "r1", FromSourceID: 2, ToSourceID: 3, SharedClaims: 1, Amplification: 0.25, CreatedAt: now})
	require.NoError(t, err)

	out, err := repo.InfluenceEdges(ctx, store.EdgeFilter{FromSourceID: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.RelAmplifies, out[0].Relationship)
	assert.Equal(t, "r1", out[0].RunID)

	for _, score := range []float64{0.2, 0.9, 0.6} {
		_, err := repo.InsertCoordinationEvent(ctx, &model.CoordinationEvent{
			ClusterID: "abc", ClaimID: 1, SourceIDs: []int64{1, 2}, SourceCount: 2,
			Score: score, Pattern: model.PatternBurst, DetectedAt: now,
		})
		require.NoError(t, err)
	}
	events, err := repo.CoordinationEvents(ctx, store.EventFilter{MinScore: 0.5, ByScore: true})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.InDelta(t, 0.9, events[0].Score, 1e-9)
	assert.Equal(t, []int64{1, 2}, events[0].SourceIDs)

	_, err = repo.InsertTrace(ctx, &model.ProvenanceTrace{
		ClaimID: 5, RootClaimID: 4, OriginType: model.OriginDerived, ChainDepth: 1,
		Path:       []model.Hop{{Kind: model.NodeClaim, ID: 4}, {Kind: model.NodeClaim, ID: 5}},
		Confidence: 0.7, TracedAt: now,
	})
	require.NoError(t, err)
	traces, err := repo.Traces(ctx, store.TraceFilter{ClaimID: 5})
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Len(t, traces[0].Path, 2)
	assert.Zero(t, traces[0].OriginSourceID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Edges)
	assert.Equal(t, 3, stats.Events)
	assert.Equal(t, 1, stats.Traces)
}

func TestFileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	repo, err := New(path, Options{})
	require.NoError(t, err)
	_, err = repo.AddSource(ctx, &model.Source{Title: "Ledger", Credibility: 0.6})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = New(path, Options{})
	require.NoError(t, err)
	defer repo.Close()

	sources, err := repo.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Ledger", sources[0].Title)
	assert.Equal(t, model.SourceTypeDocument, sources[0].Type)
}
