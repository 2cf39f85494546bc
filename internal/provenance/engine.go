// Package provenance traces claims back through their mutation ancestry and
// the source reference chain behind the root claim.
package provenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/score"
	"github.com/ppiankov/forensia/internal/store"
)

const (
	// DefaultDecay is the confidence retained per hop
	DefaultDecay = 0.85
	// DefaultMaxDepth caps both the mutation chain and the source chain
	DefaultMaxDepth = 20
	// MutationThreshold is the Jaccard similarity below which a revision counts as mutated
	MutationThreshold = 0.5

	deepestChains = 10
	labelLength   = 60
)

// Engine traces claim provenance and persists the traces
type Engine struct {
	store    store.Store
	decay    float64
	maxDepth int
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithDecay sets the per-hop confidence decay; values outside (0,1] are ignored
func WithDecay(decay float64) Option {
	return func(e *Engine) {
		if decay > 0 && decay <= 1 {
			e.decay = decay
		}
	}
}

// WithMaxDepth caps chain traversal
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithClock overrides the time source stamped on traces
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a provenance engine over the given store
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		decay:    DefaultDecay,
		maxDepth: DefaultMaxDepth,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Trace follows a claim to its origin, classifies it and persists the trace.
// The claim must exist; a missing ancestor ends the mutation chain.
func (e *Engine) Trace(ctx context.Context, claimID int64) (*model.ProvenanceTrace, error) {
	leaf, err := e.store.Claim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("trace claim %d: %w", claimID, err)
	}

	chain, err := e.mutationChain(ctx, leaf)
	if err != nil {
		return nil, err
	}
	root := chain[0]

	sources, err := e.sourceChain(ctx, root.ID)
	if err != nil {
		return nil, err
	}

	origin, err := e.classify(ctx, chain, sources)
	if err != nil {
		return nil, err
	}

	mutationDepth := len(chain) - 1
	depth := mutationDepth + len(sources)

	path := make([]model.Hop, 0, len(chain)+len(sources))
	for _, c := range chain {
		path = append(path, model.Hop{Kind: model.NodeClaim, ID: c.ID, Label: excerpt(c.Text)})
	}
	for _, s := range sources {
		path = append(path, model.Hop{Kind: model.NodeSource, ID: s.ID, Label: s.Title})
	}

	trace := &model.ProvenanceTrace{
		ClaimID:       claimID,
		RootClaimID:   root.ID,
		OriginType:    origin,
		ChainDepth:    depth,
		MutationDepth: mutationDepth,
		SourceDepth:   len(sources),
		Path:          path,
		Confidence:    Confidence(root.Confidence, depth, e.decay),
		TracedAt:      e.now(),
	}
	if len(sources) > 0 {
		last := sources[len(sources)-1]
		trace.OriginSourceID = last.ID
		trace.OriginSource = last.Title
	}

	if _, err := e.store.InsertTrace(ctx, trace); err != nil {
		return nil, fmt.Errorf("persist trace for claim %d: %w", claimID, err)
	}

	e.logger.Debug("provenance traced",
		slog.Int64("claim_id", claimID),
		slog.String("origin", string(origin)),
		slog.Int("depth", depth),
		slog.Float64("confidence", trace.Confidence))
	return trace, nil
}

// Confidence decays base confidence by decay per hop, clamped to [0,1]
func Confidence(base float64, hops int, decay float64) float64 {
	return score.Clamp01(base * math.Pow(decay, float64(hops)))
}

// mutationChain walks mutation parents from leaf and returns root..leaf.
// A visited set and the depth cap guard against cycles.
func (e *Engine) mutationChain(ctx context.Context, leaf *model.Claim) ([]model.Claim, error) {
	chain := []model.Claim{*leaf}
	visited := map[int64]bool{leaf.ID: true}

	current := leaf
	for current.HasParent() && len(chain) < e.maxDepth {
		parentID := *current.MutationParent
		if visited[parentID] {
			break
		}
		parent, err := e.store.Claim(ctx, parentID)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load mutation parent %d: %w", parentID, err)
		}
		visited[parentID] = true
		chain = append(chain, *parent)
		current = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// sourceChain starts at the most credible source linked to the claim and
// follows outgoing references/derives_from links to unvisited sources
func (e *Engine) sourceChain(ctx context.Context, claimID int64) ([]model.Source, error) {
	links, err := e.store.Links(ctx, store.LinkFilter{
		Touching:  &store.NodeRef{Kind: model.NodeClaim, ID: claimID},
		OtherKind: model.NodeSource,
	})
	if err != nil {
		return nil, fmt.Errorf("load sources of claim %d: %w", claimID, err)
	}

	candidates := make(map[int64]struct{})
	for _, l := range links {
		if _, sourceID, ok := l.ClaimSource(); ok {
			candidates[sourceID] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var best *model.Source
	for _, id := range ids {
		src, err := e.store.Source(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load source %d: %w", id, err)
		}
		if best == nil || src.Credibility > best.Credibility {
			best = src
		}
	}
	if best == nil {
		// dangling links only; keep the lowest id so the trace still has an origin
		best = &model.Source{ID: ids[0]}
	}

	chain := []model.Source{*best}
	visited := map[int64]bool{best.ID: true}
	current := best.ID

	for len(chain) < e.maxDepth {
		refs, err := e.store.Links(ctx, store.LinkFilter{
			FromType:      model.NodeSource,
			FromID:        current,
			ToType:        model.NodeSource,
			Relationships: []model.Relationship{model.RelReferences, model.RelDerivesFrom},
		})
		if err != nil {
			return nil, fmt.Errorf("load references of source %d: %w", current, err)
		}

		next := int64(0)
		for _, l := range refs {
			if !visited[l.ToID] {
				next = l.ToID
				break
			}
		}
		if next == 0 {
			break
		}

		src, err := e.store.Source(ctx, next)
		switch {
		case errors.Is(err, store.ErrNotFound):
			src = &model.Source{ID: next}
		case err != nil:
			return nil, fmt.Errorf("load source %d: %w", next, err)
		}
		visited[next] = true
		chain = append(chain, *src)
		current = next
	}
	return chain, nil
}

// classify assigns the origin type in priority order
func (e *Engine) classify(ctx context.Context, chain []model.Claim, sources []model.Source) (model.OriginType, error) {
	switch {
	case len(chain) == 1 && len(sources) > 0:
		return model.OriginOriginal, nil
	case len(chain) > 1:
		root, leaf := chain[0].Text, chain[len(chain)-1].Text
		if root == "" || leaf == "" || root == leaf {
			return model.OriginDerived, nil
		}
		if Jaccard(root, leaf) < MutationThreshold {
			return model.OriginMutated, nil
		}
		return model.OriginDerived, nil
	}

	claimID := chain[0].ID
	incoming, err := e.store.Links(ctx, store.LinkFilter{ToType: model.NodeClaim, ToID: claimID})
	if err != nil {
		return "", fmt.Errorf("load links into claim %d: %w", claimID, err)
	}
	if len(incoming) >= 2 {
		return model.OriginAmplified, nil
	}
	return model.OriginOrphan, nil
}

// Jaccard is the word-set similarity of two texts, case-insensitive.
// Either side empty gives 0.
func Jaccard(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	union := len(wa) + len(wb) - shared
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= labelLength {
		return s
	}
	return string(r[:labelLength]) + "..."
}

// TraceAll traces every claim
func (e *Engine) TraceAll(ctx context.Context) ([]model.ProvenanceTrace, error) {
	claims, err := e.store.Claims(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	traces := make([]model.ProvenanceTrace, 0, len(claims))
	for _, c := range claims {
		if err := ctx.Err(); err != nil {
			return traces, err
		}
		trace, err := e.Trace(ctx, c.ID)
		if err != nil {
			return traces, err
		}
		traces = append(traces, *trace)
	}

	e.logger.Info("provenance traced", slog.Int("claims", len(traces)))
	return traces, nil
}

// Summary aggregates every persisted trace
func (e *Engine) Summary(ctx context.Context) (*model.ProvenanceSummary, error) {
	traces, err := e.store.Traces(ctx, store.TraceFilter{})
	if err != nil {
		return nil, fmt.Errorf("load traces: %w", err)
	}

	summary := &model.ProvenanceSummary{
		TotalTraced:   len(traces),
		Origins:       map[model.OriginType]int{},
		DeepestChains: []model.ChainSummary{},
	}
	if len(traces) == 0 {
		return summary, nil
	}

	depthSum, confSum := 0, 0.0
	for _, t := range traces {
		summary.Origins[t.OriginType]++
		depthSum += t.ChainDepth
		confSum += t.Confidence
		if t.ChainDepth > summary.MaxChainDepth {
			summary.MaxChainDepth = t.ChainDepth
		}
	}
	summary.AvgChainDepth = float64(depthSum) / float64(len(traces))
	summary.AvgConfidence = confSum / float64(len(traces))
	summary.OrphanCount = summary.Origins[model.OriginOrphan]

	deepest := append([]model.ProvenanceTrace(nil), traces...)
	sort.SliceStable(deepest, func(i, j int) bool { return deepest[i].ChainDepth > deepest[j].ChainDepth })
	if len(deepest) > deepestChains {
		deepest = deepest[:deepestChains]
	}
	for _, t := range deepest {
		summary.DeepestChains = append(summary.DeepestChains, model.ChainSummary{
			ClaimID:    t.ClaimID,
			ChainDepth: t.ChainDepth,
			OriginType: t.OriginType,
			Confidence: t.Confidence,
		})
	}
	return summary, nil
}

// Traces returns stored traces of a claim, newest first. limit <= 0 returns all.
func (e *Engine) Traces(ctx context.Context, claimID int64, limit int) ([]model.ProvenanceTrace, error) {
	traces, err := e.store.Traces(ctx, store.TraceFilter{ClaimID: claimID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("load traces of claim %d: %w", claimID, err)
	}
	return traces, nil
}
