package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("forensia.graph")

// PageRankOptions configures the power iteration
type PageRankOptions struct {
	// DampingFactor is the probability of following an edge (default 0.85)
	DampingFactor float64
	// MaxIterations caps the power iteration (default 100)
	MaxIterations int
	// Tolerance is the per-node L1 convergence threshold (default 1e-6)
	Tolerance float64
}

// DefaultPageRankOptions returns the standard parameters
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// Validate checks the options for sane values
func (o PageRankOptions) Validate() error {
	if o.DampingFactor <= 0 || o.DampingFactor >= 1 {
		return fmt.Errorf("%w: damping factor %v not in (0,1)", ErrInvalidOptions, o.DampingFactor)
	}
	if o.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations %d", ErrInvalidOptions, o.MaxIterations)
	}
	if o.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance %v", ErrInvalidOptions, o.Tolerance)
	}
	return nil
}

// PageRank computes weighted PageRank. Each node distributes its rank over
// its out-edges in proportion to edge weight; dangling nodes spread their rank
// uniformly. Scores sum to 1. Returns ErrNoConvergence with the last iterate
// when MaxIterations is exhausted.
func PageRank(ctx context.Context, g *Digraph, opts PageRankOptions) (map[int64]float64, error) {
	ctx, span := tracer.Start(ctx, "graph.PageRank",
		trace.WithAttributes(
			attribute.Int("node_count", g.NodeCount()),
			attribute.Int("edge_count", g.EdgeCount()),
		),
	)
	defer span.End()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	n := g.NodeCount()
	if n == 0 {
		span.AddEvent("empty_graph")
		return map[int64]float64{}, nil
	}

	outWeight := make([]float64, n)
	var dangling []int
	for u, targets := range g.out {
		for _, w := range targets {
			outWeight[u] += w
		}
		if outWeight[u] == 0 {
			dangling = append(dangling, u)
		}
	}
	span.SetAttributes(attribute.Int("dangling_node_count", len(dangling)))

	uniform := 1 / float64(n)
	rank := make([]float64, n)
	for i := range rank {
		rank[i] = uniform
	}
	next := make([]float64, n)

	var (
		iterations int
		converged  bool
		diff       float64
	)
	for iterations = 1; iterations <= opts.MaxIterations; iterations++ {
		if err := ctx.Err(); err != nil {
			span.AddEvent("cancelled", trace.WithAttributes(attribute.Int("iterations_completed", iterations-1)))
			return nil, err
		}

		danglingSum := 0.0
		for _, u := range dangling {
			danglingSum += rank[u]
		}
		base := (1-opts.DampingFactor)*uniform + opts.DampingFactor*danglingSum*uniform
		for i := range next {
			next[i] = base
		}
		for u, targets := range g.out {
			if outWeight[u] == 0 {
				continue
			}
			share := opts.DampingFactor * rank[u] / outWeight[u]
			for v, w := range targets {
				next[v] += share * w
			}
		}

		diff = 0
		for i := range rank {
			diff += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		if diff < float64(n)*opts.Tolerance {
			converged = true
			break
		}
	}

	span.SetAttributes(
		attribute.Int("iterations", iterations),
		attribute.Bool("converged", converged),
		attribute.Float64("max_diff", diff),
	)

	scores := make(map[int64]float64, n)
	for i, id := range g.ids {
		scores[id] = rank[i]
	}

	slog.Debug("PageRank completed",
		slog.Int("nodes", n),
		slog.Int("iterations", iterations),
		slog.Bool("converged", converged),
	)
	if !converged {
		return scores, ErrNoConvergence
	}
	return scores, nil
}
