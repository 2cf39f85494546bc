// Package reputation scores source credibility over time.
//
// Every Snapshot tallies the source's claim links, derives a Laplace-smoothed
// reliability and an exponential moving average over prior snapshots, and
// appends the result to the store. Profiles replay the full snapshot history.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/score"
	"github.com/ppiankov/forensia/internal/store"
)

const (
	// DefaultAlpha is the EMA smoothing factor
	DefaultAlpha = 0.3
	// TrendWindow is how many prior snapshots the trend looks back over
	TrendWindow = 3
	// TrendThreshold is the minimum |delta| to call a trend
	TrendThreshold = 0.02
)

// Engine computes and persists reputation snapshots
type Engine struct {
	store  store.Store
	alpha  float64
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithAlpha overrides the EMA smoothing factor; values outside (0,1] are ignored
func WithAlpha(alpha float64) Option {
	return func(e *Engine) {
		if alpha > 0 && alpha <= 1 {
			e.alpha = alpha
		}
	}
}

// WithClock overrides the time source stamped on snapshots
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a reputation engine over the given store
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		alpha:  DefaultAlpha,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reliability is the Laplace-smoothed support ratio
func Reliability(support, total int) float64 {
	return float64(support+1) / float64(total+2)
}

// Snapshot computes and persists one reputation snapshot for a source
func (e *Engine) Snapshot(ctx context.Context, sourceID int64) (*model.ReputationSnapshot, error) {
	links, err := e.store.Links(ctx, store.LinkFilter{
		Touching:  &store.NodeRef{Kind: model.NodeSource, ID: sourceID},
		OtherKind: model.NodeClaim,
	})
	if err != nil {
		return nil, fmt.Errorf("load links for source %d: %w", sourceID, err)
	}

	support, contra := 0, 0
	for _, l := range links {
		switch {
		case l.Relationship.IsSupporting():
			support++
		case l.Relationship.IsContradicting():
			contra++
		}
	}
	total := len(links)

	accuracy := 0.0
	if total > 0 {
		accuracy = float64(support) / float64(total)
	}
	reliability := Reliability(support, total)

	prior, err := e.store.Snapshots(ctx, sourceID, TrendWindow)
	if err != nil {
		return nil, fmt.Errorf("load prior snapshots for source %d: %w", sourceID, err)
	}

	ema := reliability
	if len(prior) > 0 {
		ema = e.alpha*reliability + (1-e.alpha)*prior[0].EMA
	}

	snap := &model.ReputationSnapshot{
		SourceID:     sourceID,
		SupportCount: support,
		ContraCount:  contra,
		TotalClaims:  total,
		Accuracy:     accuracy,
		Reliability:  reliability,
		EMA:          ema,
		Trend:        trendOf(prior, reliability),
		ComputedAt:   e.now(),
	}
	if _, err := e.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot for source %d: %w", sourceID, err)
	}

	e.logger.Debug("reputation snapshot",
		slog.Int64("source_id", sourceID),
		slog.Float64("reliability", reliability),
		slog.Float64("ema", ema),
		slog.String("trend", string(snap.Trend)))
	return snap, nil
}

// trendOf compares the current reliability against the oldest of the most
// recent prior snapshots (newest first)
func trendOf(prior []model.ReputationSnapshot, current float64) model.Trend {
	if len(prior) < TrendWindow {
		return model.TrendFlat
	}
	delta := current - prior[TrendWindow-1].Reliability
	switch {
	case delta > TrendThreshold:
		return model.TrendImproving
	case delta < -TrendThreshold:
		return model.TrendDegrading
	default:
		return model.TrendFlat
	}
}

// SnapshotAll snapshots every known source
func (e *Engine) SnapshotAll(ctx context.Context) ([]model.ReputationSnapshot, error) {
	sources, err := e.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	snaps := make([]model.ReputationSnapshot, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return snaps, err
		}
		snap, err := e.Snapshot(ctx, src.ID)
		if err != nil {
			return snaps, err
		}
		snaps = append(snaps, *snap)
	}

	e.logger.Info("reputation snapshots written", slog.Int("sources", len(snaps)))
	return snaps, nil
}

// History returns a source's snapshots, newest first. limit <= 0 returns all.
func (e *Engine) History(ctx context.Context, sourceID int64, limit int) ([]model.ReputationSnapshot, error) {
	snaps, err := e.store.Snapshots(ctx, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history for source %d: %w", sourceID, err)
	}
	return snaps, nil
}

// Profile replays a source's snapshot history into a reputation profile.
// A source with no history gets neutral values, index 0 and grade C.
func (e *Engine) Profile(ctx context.Context, sourceID int64) (*model.ReputationProfile, error) {
	profile := &model.ReputationProfile{
		SourceID:           sourceID,
		CurrentReliability: 0.5,
		CurrentEMA:         0.5,
		MeanReliability:    0.5,
		Trend:              model.TrendFlat,
		Grade:              model.GradeC,
	}

	src, err := e.store.Source(ctx, sourceID)
	switch {
	case err == nil:
		profile.SourceTitle = src.Title
		profile.SourceType = string(src.Type)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load source %d: %w", sourceID, err)
	}

	history, err := e.store.Snapshots(ctx, sourceID, 0)
	if err != nil {
		return nil, fmt.Errorf("load history for source %d: %w", sourceID, err)
	}
	profile.SnapshotCount = len(history)
	if len(history) == 0 {
		return profile, nil
	}

	latest, first := history[0], history[len(history)-1]
	profile.CurrentReliability = latest.Reliability
	profile.CurrentEMA = latest.EMA
	profile.Accuracy = latest.Accuracy
	profile.SupportCount = latest.SupportCount
	profile.ContraCount = latest.ContraCount
	profile.TotalClaims = latest.TotalClaims
	profile.Trend = latest.Trend

	if decided := latest.SupportCount + latest.ContraCount; decided > 0 {
		profile.SupportRatio = float64(latest.SupportCount) / float64(decided)
	}

	profile.MeanReliability, profile.StdReliability = meanStd(history)
	if len(history) >= 2 {
		profile.TrendDelta = latest.Reliability - first.Reliability
	}

	profile.ReliabilityIndex = ReliabilityIndex(profile)
	profile.Grade = score.GradeFor(profile.ReliabilityIndex)
	return profile, nil
}

// meanStd returns the mean and population standard deviation of snapshot
// reliability; std is 0 for a single snapshot
func meanStd(history []model.ReputationSnapshot) (float64, float64) {
	sum := 0.0
	for _, s := range history {
		sum += s.Reliability
	}
	mean := sum / float64(len(history))
	if len(history) < 2 {
		return mean, 0
	}

	variance := 0.0
	for _, s := range history {
		d := s.Reliability - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(history)))
}

// ReliabilityIndex is the composite of accuracy (40%), EMA (30%),
// consistency (20%) and log-scaled claim volume (10%), clamped to [0,1]
func ReliabilityIndex(p *model.ReputationProfile) float64 {
	accuracy := p.Accuracy * 0.40
	ema := p.CurrentEMA * 0.30
	consistency := math.Max(0, 1-3*p.StdReliability) * 0.20
	volume := math.Min(1, math.Log1p(float64(p.TotalClaims))/3) * 0.10
	return score.Clamp01(accuracy + ema + consistency + volume)
}

// Rank returns every source's profile, highest reliability index first
func (e *Engine) Rank(ctx context.Context) ([]model.ReputationProfile, error) {
	sources, err := e.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	profiles := make([]model.ReputationProfile, 0, len(sources))
	for _, src := range sources {
		p, err := e.Profile(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].ReliabilityIndex != profiles[j].ReliabilityIndex {
			return profiles[i].ReliabilityIndex > profiles[j].ReliabilityIndex
		}
		return profiles[i].SourceID < profiles[j].SourceID
	})
	return profiles, nil
}
