// Package influence builds the source-to-source influence network and
// analyzes its structure.
//
// Two sources are linked when both touch the same claim; the source whose
// link appeared first points at the later one.
package influence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ppiankov/forensia/internal/graph"
	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/store"
)

var tracer = otel.Tracer("forensia.influence")

const (
	maxGateways    = 5
	bottleneckPool = 10
	maxAmplifiers  = 10
	maxCentrality  = 10
)

// Engine builds and analyzes influence edges
type Engine struct {
	store    store.Store
	pagerank graph.PageRankOptions
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source stamped on edges
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPageRankIterations caps the PageRank power iteration
func WithPageRankIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pagerank.MaxIterations = n
		}
	}
}

// NewEngine creates an influence engine over the given store
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		pagerank: graph.DefaultPageRankOptions(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sighting is one source touching a claim
type sighting struct {
	sourceID int64
	raw      string
	at       time.Time // zero when raw is missing or unparsable
}

type pairKey struct{ from, to int64 }

// pairStats accumulates one directed source pair across claims
type pairStats struct {
	shared   int
	firstRaw string
	firstAt  time.Time
	hasFirst bool
	lastRaw  string
	lastAt   time.Time
	hasLast  bool
}

func (p *pairStats) observe(earlier, later sighting) {
	p.shared++
	if !earlier.at.IsZero() && (!p.hasFirst || earlier.at.Before(p.firstAt)) {
		p.firstRaw, p.firstAt, p.hasFirst = earlier.raw, earlier.at, true
	}
	if !later.at.IsZero() && (!p.hasLast || later.at.After(p.lastAt)) {
		p.lastRaw, p.lastAt, p.hasLast = later.raw, later.at, true
	}
}

// BuildEdges derives influence edges from claim co-occurrence and appends
// them to the store under a fresh run id
func (e *Engine) BuildEdges(ctx context.Context) ([]model.InfluenceEdge, error) {
	links, err := e.store.Links(ctx, store.LinkFilter{ClaimSourceOnly: true, Order: store.OrderByInsertion})
	if err != nil {
		return nil, fmt.Errorf("load claim-source links: %w", err)
	}

	byClaim := make(map[int64][]sighting)
	var claimOrder []int64
	for _, l := range links {
		claimID, sourceID, ok := l.ClaimSource()
		if !ok {
			continue
		}
		if _, seen := byClaim[claimID]; !seen {
			claimOrder = append(claimOrder, claimID)
		}
		at, _ := model.ParseTimestamp(l.CreatedAt)
		byClaim[claimID] = append(byClaim[claimID], sighting{sourceID: sourceID, raw: l.CreatedAt, at: at})
	}

	pairs := make(map[pairKey]*pairStats)
	for _, claimID := range claimOrder {
		sightings := byClaim[claimID]
		if distinctSources(sightings) < 2 {
			continue
		}
		sort.SliceStable(sightings, func(i, j int) bool {
			return sightings[i].at.Before(sightings[j].at)
		})
		for i := range sightings {
			for j := i + 1; j < len(sightings); j++ {
				a, b := sightings[i], sightings[j]
				if a.sourceID == b.sourceID {
					continue
				}
				key := pairKey{a.sourceID, b.sourceID}
				if pairs[key] == nil {
					pairs[key] = &pairStats{}
				}
				pairs[key].observe(a, b)
			}
		}
	}

	keys := make([]pairKey, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})

	runID := uuid.NewString()
	createdAt := e.now()
	totals := make(map[int64]int)
	edges := make([]model.InfluenceEdge, 0, len(keys))

	for _, k := range keys {
		total, ok := totals[k.from]
		if !ok {
			touching, err := e.store.Links(ctx, store.LinkFilter{
				Touching: &store.NodeRef{Kind: model.NodeSource, ID: k.from},
			})
			if err != nil {
				return edges, fmt.Errorf("count links of source %d: %w", k.from, err)
			}
			total = len(touching)
			totals[k.from] = total
		}

		p := pairs[k]
		edge := model.InfluenceEdge{
			RunID:         runID,
			FromSourceID:  k.from,
			ToSourceID:    k.to,
			SharedClaims:  p.shared,
			Amplification: float64(p.shared) / float64(max(1, total)),
			Relationship:  model.RelAmplifies,
			FirstSeen:     p.firstRaw,
			LastSeen:      p.lastRaw,
			CreatedAt:     createdAt,
		}
		if _, err := e.store.InsertInfluenceEdge(ctx, &edge); err != nil {
			return edges, fmt.Errorf("persist influence edge %d->%d: %w", k.from, k.to, err)
		}
		edges = append(edges, edge)
	}

	e.logger.Info("influence edges built",
		slog.String("run_id", runID),
		slog.Int("edges", len(edges)),
		slog.Int("claims", len(claimOrder)))
	return edges, nil
}

func distinctSources(sightings []sighting) int {
	seen := make(map[int64]struct{}, len(sightings))
	for _, s := range sightings {
		seen[s.sourceID] = struct{}{}
	}
	return len(seen)
}

// latestPerPair keeps the most recently inserted edge of every ordered pair,
// preserving first-seen order of the pairs
func latestPerPair(edges []model.InfluenceEdge) []model.InfluenceEdge {
	index := make(map[pairKey]int, len(edges))
	var out []model.InfluenceEdge
	for _, edge := range edges {
		k := pairKey{edge.FromSourceID, edge.ToSourceID}
		if i, ok := index[k]; ok {
			if edge.ID >= out[i].ID {
				out[i] = edge
			}
			continue
		}
		index[k] = len(out)
		out = append(out, edge)
	}
	return out
}

// AnalyzeNetwork computes structural metrics over all sources and the
// latest persisted edge of every ordered source pair
func (e *Engine) AnalyzeNetwork(ctx context.Context) (*model.NetworkProfile, error) {
	ctx, span := tracer.Start(ctx, "influence.AnalyzeNetwork")
	defer span.End()

	sources, err := e.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	stored, err := e.store.InfluenceEdges(ctx, store.EdgeFilter{})
	if err != nil {
		return nil, fmt.Errorf("load influence edges: %w", err)
	}
	edges := latestPerPair(stored)

	profile := &model.NetworkProfile{
		TotalSources:  len(sources),
		Gateways:      []model.Gateway{},
		Bottlenecks:   []model.Bottleneck{},
		TopAmplifiers: []model.Amplifier{},
		Centrality:    []model.CentralityScore{},
		Clusters:      [][]int64{},
	}
	span.SetAttributes(attribute.Int("sources", len(sources)), attribute.Int("edges", len(edges)))
	if len(sources) < 2 || len(edges) == 0 {
		return profile, nil
	}

	g := graph.New()
	titles := make(map[int64]string, len(sources))
	for _, src := range sources {
		g.AddNode(src.ID)
		titles[src.ID] = src.Title
	}
	for _, edge := range edges {
		g.AddEdge(edge.FromSourceID, edge.ToSourceID, float64(edge.SharedClaims))
	}

	n := float64(len(sources))
	profile.TotalEdges = len(edges)
	profile.Density = float64(len(edges)) / (n * (n - 1))
	profile.Components = g.ComponentCount()

	betweenness, err := graph.Betweenness(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("betweenness: %w", err)
	}
	ranked := graph.TopK(betweenness, 0)
	for i, s := range ranked {
		if i >= maxGateways {
			break
		}
		if s.Value > 0 {
			profile.Gateways = append(profile.Gateways, model.Gateway{SourceID: s.ID, Betweenness: s.Value})
		}
	}
	for i, s := range ranked {
		if i >= bottleneckPool {
			break
		}
		if s.Value <= 0 {
			continue
		}
		if after := g.Without(s.ID).ComponentCount(); after > profile.Components {
			profile.Bottlenecks = append(profile.Bottlenecks, model.Bottleneck{
				SourceID:            s.ID,
				Betweenness:         s.Value,
				ComponentsIfRemoved: after,
			})
		}
	}

	amplification := make(map[int64]float64)
	for _, edge := range edges {
		amplification[edge.FromSourceID] += edge.Amplification
	}
	for _, s := range graph.TopK(amplification, maxAmplifiers) {
		profile.TopAmplifiers = append(profile.TopAmplifiers, model.Amplifier{
			SourceID:           s.ID,
			Title:              titles[s.ID],
			AmplificationTotal: s.Value,
		})
	}

	pagerank, err := graph.PageRank(ctx, g, e.pagerank)
	switch {
	case errors.Is(err, graph.ErrNoConvergence):
		e.logger.Warn("pagerank did not converge; centrality omitted",
			slog.Int("max_iterations", e.pagerank.MaxIterations))
	case err != nil:
		return nil, fmt.Errorf("pagerank: %w", err)
	default:
		for _, s := range graph.TopK(pagerank, maxCentrality) {
			profile.Centrality = append(profile.Centrality, model.CentralityScore{SourceID: s.ID, PageRank: s.Value})
		}
	}

	profile.Clusters = g.WeakComponents()

	e.logger.Info("influence network analyzed",
		slog.Int("sources", profile.TotalSources),
		slog.Int("edges", profile.TotalEdges),
		slog.Float64("density", profile.Density),
		slog.Int("components", profile.Components))
	return profile, nil
}

// InfluenceOn returns the latest outgoing edges of a source
func (e *Engine) InfluenceOn(ctx context.Context, sourceID int64) ([]model.InfluenceEdge, error) {
	edges, err := e.store.InfluenceEdges(ctx, store.EdgeFilter{FromSourceID: sourceID})
	if err != nil {
		return nil, fmt.Errorf("load edges from source %d: %w", sourceID, err)
	}
	return latestPerPair(edges), nil
}

// InfluencedBy returns the latest incoming edges of a source
func (e *Engine) InfluencedBy(ctx context.Context, sourceID int64) ([]model.InfluenceEdge, error) {
	edges, err := e.store.InfluenceEdges(ctx, store.EdgeFilter{ToSourceID: sourceID})
	if err != nil {
		return nil, fmt.Errorf("load edges to source %d: %w", sourceID, err)
	}
	return latestPerPair(edges), nil
}
