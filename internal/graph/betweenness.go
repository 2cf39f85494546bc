package graph

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// Betweenness computes normalized betweenness centrality with Brandes'
// algorithm over unweighted shortest paths, honoring edge direction.
// Scores are scaled by 1/((n-1)(n-2)); graphs with fewer than 3 nodes score 0.
func Betweenness(ctx context.Context, g *Digraph) (map[int64]float64, error) {
	ctx, span := tracer.Start(ctx, "graph.Betweenness")
	defer span.End()

	n := g.NodeCount()
	span.SetAttributes(
		attribute.Int("node_count", n),
		attribute.Int("edge_count", g.EdgeCount()),
	)

	scores := make(map[int64]float64, n)
	for _, id := range g.ids {
		scores[id] = 0
	}
	if n < 3 {
		return scores, nil
	}

	cb := make([]float64, n)
	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		if err := ctx.Err(); err != nil {
			span.AddEvent("cancelled")
			return nil, err
		}

		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		sigma[s] = 1
		dist[s] = 0
		stack = stack[:0]
		queue = append(queue[:0], s)

		for head := 0; head < len(queue); head++ {
			v := queue[head]
			stack = append(stack, v)
			for _, w := range g.successors(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	scale := 1 / float64((n-1)*(n-2))
	for i, id := range g.ids {
		scores[id] = cb[i] * scale
	}

	slog.Debug("betweenness completed", slog.Int("nodes", n), slog.Int("edges", g.EdgeCount()))
	return scores, nil
}
