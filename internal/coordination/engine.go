// Package coordination detects sources that touch the same claim inside a
// tight time window and scores how coordinated that activity looks.
package coordination

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/score"
	"github.com/ppiankov/forensia/internal/store"
)

const (
	// DefaultWindowHours is the clustering window used when none is given
	DefaultWindowHours = 24.0
	// MinSources is the smallest cluster worth reporting
	MinSources = 2
	// SimultaneousHours is the spread at or under which a cluster is simultaneous
	SimultaneousHours = 1.0
	// CascadeFactor is the spread/window ratio at or under which a cluster is a cascade
	CascadeFactor = 0.3

	minSpreadHours = 0.1
	topSources     = 10
)

// Engine scans claims for coordinated source activity
type Engine struct {
	store  store.Store
	window float64
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithWindow sets the default clustering window in hours
func WithWindow(hours float64) Option {
	return func(e *Engine) {
		if hours > 0 {
			e.window = hours
		}
	}
}

// WithClock overrides the time source stamped on events
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a coordination engine over the given store
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		window: DefaultWindowHours,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the engine's default window in hours
func (e *Engine) Window() float64 { return e.window }

// sighting is one source touching a claim
type sighting struct {
	sourceID int64
	at       time.Time
	ok       bool // at parsed from the link timestamp
}

// Scan clusters every claim's source activity and persists each qualifying
// cluster. windowHours <= 0 uses the engine default.
func (e *Engine) Scan(ctx context.Context, windowHours float64) ([]model.CoordinationEvent, error) {
	links, err := e.store.Links(ctx, store.LinkFilter{ClaimSourceOnly: true, Order: store.OrderByInsertion})
	if err != nil {
		return nil, fmt.Errorf("load claim-source links: %w", err)
	}
	return e.scanLinks(ctx, links, e.windowOr(windowHours))
}

// ScanClaim runs the same clustering restricted to one claim
func (e *Engine) ScanClaim(ctx context.Context, claimID int64, windowHours float64) ([]model.CoordinationEvent, error) {
	links, err := e.store.Links(ctx, store.LinkFilter{
		Touching:  &store.NodeRef{Kind: model.NodeClaim, ID: claimID},
		OtherKind: model.NodeSource,
		Order:     store.OrderByInsertion,
	})
	if err != nil {
		return nil, fmt.Errorf("load links of claim %d: %w", claimID, err)
	}
	return e.scanLinks(ctx, links, e.windowOr(windowHours))
}

func (e *Engine) windowOr(hours float64) float64 {
	if hours > 0 {
		return hours
	}
	return e.window
}

func (e *Engine) scanLinks(ctx context.Context, links []model.EvidenceLink, window float64) ([]model.CoordinationEvent, error) {
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
		at, parsed := model.ParseTimestamp(l.CreatedAt)
		byClaim[claimID] = append(byClaim[claimID], sighting{sourceID: sourceID, at: at, ok: parsed})
	}

	runID := uuid.NewString()
	detectedAt := e.now()
	var events []model.CoordinationEvent

	for _, claimID := range claimOrder {
		sightings := byClaim[claimID]
		if len(sightings) < MinSources {
			continue
		}
		sort.SliceStable(sightings, func(i, j int) bool {
			return sightings[i].at.Before(sightings[j].at)
		})

		for _, cluster := range clusters(sightings, window) {
			members := memberIDs(cluster)
			if len(members) < MinSources {
				continue
			}

			spread := spreadHours(cluster)
			density := float64(len(members)) / math.Max(spread, minSpreadHours)
			stored := window
			if spread > 0 {
				stored = spread
			}

			event := model.CoordinationEvent{
				RunID:           runID,
				ClusterID:       ClusterID(claimID, members),
				ClaimID:         claimID,
				SourceIDs:       members,
				SourceCount:     len(members),
				WindowHours:     stored,
				TemporalDensity: density,
				Score:           Score(len(members), spread, window),
				Pattern:         Classify(spread, window),
				DetectedAt:      detectedAt,
			}
			if _, err := e.store.InsertCoordinationEvent(ctx, &event); err != nil {
				return events, fmt.Errorf("persist coordination event for claim %d: %w", claimID, err)
			}
			events = append(events, event)
		}
	}

	e.logger.Info("coordination scan complete",
		slog.String("run_id", runID),
		slog.Float64("window_hours", window),
		slog.Int("claims", len(claimOrder)),
		slog.Int("events", len(events)))
	return events, nil
}

// clusters partitions time-ordered sightings greedily: a gap wider than the
// window closes the current cluster. Sightings without a usable timestamp
// never break a cluster.
func clusters(sightings []sighting, window float64) [][]sighting {
	if len(sightings) == 0 {
		return nil
	}

	var out [][]sighting
	current := []sighting{sightings[0]}
	for i := 1; i < len(sightings); i++ {
		prev, cur := sightings[i-1], sightings[i]
		if prev.ok && cur.ok && cur.at.Sub(prev.at).Hours() > window {
			if len(current) >= MinSources {
				out = append(out, current)
			}
			current = []sighting{cur}
			continue
		}
		current = append(current, cur)
	}
	if len(current) >= MinSources {
		out = append(out, current)
	}
	return out
}

// memberIDs returns distinct source ids in first-seen order
func memberIDs(cluster []sighting) []int64 {
	seen := make(map[int64]struct{}, len(cluster))
	ids := make([]int64, 0, len(cluster))
	for _, s := range cluster {
		if _, ok := seen[s.sourceID]; ok {
			continue
		}
		seen[s.sourceID] = struct{}{}
		ids = append(ids, s.sourceID)
	}
	return ids
}

// spreadHours is the span of parseable timestamps; 0 with fewer than two
func spreadHours(cluster []sighting) float64 {
	var (
		lo, hi time.Time
		n      int
	)
	for _, s := range cluster {
		if !s.ok {
			continue
		}
		if n == 0 || s.at.Before(lo) {
			lo = s.at
		}
		if n == 0 || s.at.After(hi) {
			hi = s.at
		}
		n++
	}
	if n < 2 {
		return 0
	}
	return hi.Sub(lo).Hours()
}

// Score combines cluster size (35%), temporal tightness relative to the
// window (40%) and members per hour (25%) into [0,1]
func Score(count int, spreadHours, windowHours float64) float64 {
	countFactor := math.Min(1, math.Log1p(float64(count))/3)

	tightness := 1.0
	if spreadHours > 0 && windowHours > 0 {
		tightness = 1 - spreadHours/windowHours
	}
	tightness = score.Clamp01(tightness)

	density := float64(count) / math.Max(spreadHours, minSpreadHours)
	densityFactor := math.Min(1, density/10)

	return score.Clamp01(0.35*countFactor + 0.40*tightness + 0.25*densityFactor)
}

// Classify labels a cluster by its spread
func Classify(spreadHours, windowHours float64) model.Pattern {
	if spreadHours <= SimultaneousHours {
		return model.PatternSimultaneous
	}
	if windowHours > 0 && spreadHours/windowHours <= CascadeFactor {
		return model.PatternCascade
	}
	return model.PatternBurst
}

// ClusterID digests a claim id and its member set: independent of member
// order, different for the same members on different claims
func ClusterID(claimID int64, sourceIDs []int64) string {
	sorted := append([]int64(nil), sourceIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	raw := fmt.Sprintf("claim_%d_sources_%s", claimID, strings.Join(parts, "_"))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// Summary aggregates every persisted coordination event
func (e *Engine) Summary(ctx context.Context) (*model.CoordinationSummary, error) {
	events, err := e.store.CoordinationEvents(ctx, store.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("load coordination events: %w", err)
	}

	summary := &model.CoordinationSummary{
		TotalEvents: len(events),
		Patterns:    map[model.Pattern]int{},
		TopSources:  []model.SourceFrequency{},
	}
	if len(events) == 0 {
		return summary, nil
	}

	clusterIDs := make(map[string]struct{})
	frequency := make(map[int64]int)
	total := 0.0
	for _, ev := range events {
		clusterIDs[ev.ClusterID] = struct{}{}
		summary.Patterns[ev.Pattern]++
		total += ev.Score
		if ev.Score > summary.HighestScore {
			summary.HighestScore = ev.Score
		}
		for _, id := range ev.SourceIDs {
			frequency[id]++
		}
	}
	summary.TotalClusters = len(clusterIDs)
	summary.MeanScore = total / float64(len(events))

	for id, n := range frequency {
		summary.TopSources = append(summary.TopSources, model.SourceFrequency{SourceID: id, EventCount: n})
	}
	sort.Slice(summary.TopSources, func(i, j int) bool {
		a, b := summary.TopSources[i], summary.TopSources[j]
		if a.EventCount != b.EventCount {
			return a.EventCount > b.EventCount
		}
		return a.SourceID < b.SourceID
	})
	if len(summary.TopSources) > topSources {
		summary.TopSources = summary.TopSources[:topSources]
	}
	return summary, nil
}

// Events returns persisted events scoring at least minScore, highest first.
// limit <= 0 returns all.
func (e *Engine) Events(ctx context.Context, minScore float64, limit int) ([]model.CoordinationEvent, error) {
	events, err := e.store.CoordinationEvents(ctx, store.EventFilter{MinScore: minScore, Limit: limit, ByScore: true})
	if err != nil {
		return nil, fmt.Errorf("load coordination events: %w", err)
	}
	return events, nil
}
