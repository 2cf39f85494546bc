// Package graph provides a small directed weighted graph and the analyses the
// influence network needs: weakly-connected components, betweenness
// centrality and PageRank.
package graph

import "sort"

// Digraph is a directed graph over int64 node ids with float64 edge weights.
// Nodes keep insertion order; a repeated AddEdge overwrites the weight.
type Digraph struct {
	ids   []int64
	index map[int64]int
	out   []map[int]float64
	edges int
}

// New creates an empty graph
func New() *Digraph {
	return &Digraph{index: make(map[int64]int)}
}

// AddNode adds id if it is not present and returns its dense index
func (g *Digraph) AddNode(id int64) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.ids)
	g.ids = append(g.ids, id)
	g.index[id] = i
	g.out = append(g.out, make(map[int]float64))
	return i
}

// AddEdge adds from->to, creating missing nodes. Self-loops are ignored.
func (g *Digraph) AddEdge(from, to int64, weight float64) {
	if from == to {
		g.AddNode(from)
		return
	}
	u, v := g.AddNode(from), g.AddNode(to)
	if _, exists := g.out[u][v]; !exists {
		g.edges++
	}
	g.out[u][v] = weight
}

// NodeCount returns the number of nodes
func (g *Digraph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of distinct directed edges
func (g *Digraph) EdgeCount() int { return g.edges }

// Without returns a copy of the graph with id and its edges removed
func (g *Digraph) Without(id int64) *Digraph {
	h := New()
	for _, n := range g.ids {
		if n != id {
			h.AddNode(n)
		}
	}
	for u, targets := range g.out {
		if g.ids[u] == id {
			continue
		}
		for _, v := range sortedKeys(targets) {
			if g.ids[v] == id {
				continue
			}
			h.AddEdge(g.ids[u], g.ids[v], targets[v])
		}
	}
	return h
}

// successors returns out-neighbor indices of u in ascending order
func (g *Digraph) successors(u int) []int {
	return sortedKeys(g.out[u])
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Score pairs a node id with a value
type Score struct {
	ID    int64
	Value float64
}

// TopK returns up to k scores sorted descending, ties broken by ascending id.
// k <= 0 returns all.
func TopK(scores map[int64]float64, k int) []Score {
	out := make([]Score, 0, len(scores))
	for id, v := range scores {
		out = append(out, Score{ID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ID < out[j].ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
