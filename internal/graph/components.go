package graph

import "sort"

// unionFind is a disjoint-set forest with path halving and union by size
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}

// WeakComponents returns the weakly-connected components. Members are sorted
// ascending and components are ordered by their smallest member.
func (g *Digraph) WeakComponents() [][]int64 {
	uf := newUnionFind(len(g.ids))
	for u, targets := range g.out {
		for v := range targets {
			uf.union(u, v)
		}
	}

	groups := make(map[int][]int64)
	for i, id := range g.ids {
		root := uf.find(i)
		groups[root] = append(groups[root], id)
	}

	components := make([][]int64, 0, len(groups))
	for _, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		components = append(components, members)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components
}

// ComponentCount returns the number of weakly-connected components
func (g *Digraph) ComponentCount() int {
	uf := newUnionFind(len(g.ids))
	count := len(g.ids)
	for u, targets := range g.out {
		for v := range targets {
			if uf.find(u) != uf.find(v) {
				uf.union(u, v)
				count--
			}
		}
	}
	return count
}
