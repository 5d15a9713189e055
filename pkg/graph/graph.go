// Package graph provides the small undirected graph type the corrector works
// on: cells are integer vertex ids (matching the rows of the embedding
// matrix), neighbourhoods are induced subgraphs of the full KNN graph.
//
// The package does not build KNN graphs itself; edges arrive from the
// pipeline that constructed the graph.
package graph

import "sort"

// Undirected is an adjacency-set graph over integer vertex ids.
// Loops and parallel edges are collapsed; the corrector never needs them.
type Undirected struct {
	adj map[int]map[int]struct{}
}

// NewUndirected returns an empty graph.
func NewUndirected() *Undirected {
	return &Undirected{adj: make(map[int]map[int]struct{})}
}

// AddVertex registers a vertex. Adding an existing vertex is a no-op.
func (g *Undirected) AddVertex(v int) {
	if _, ok := g.adj[v]; !ok {
		g.adj[v] = make(map[int]struct{})
	}
}

// AddEdge connects u and v, creating the vertices if needed.
// Self-loops are ignored: they carry no connectivity information.
func (g *Undirected) AddEdge(u, v int) {
	if u == v {
		return
	}
	g.AddVertex(u)
	g.AddVertex(v)
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
}

// HasVertex reports whether v is in the graph.
func (g *Undirected) HasVertex(v int) bool {
	_, ok := g.adj[v]
	return ok
}

// HasEdge reports whether u and v are connected.
func (g *Undirected) HasEdge(u, v int) bool {
	_, ok := g.adj[u][v]
	return ok
}

// Order returns the number of vertices.
func (g *Undirected) Order() int {
	return len(g.adj)
}

// Size returns the number of (undirected) edges.
func (g *Undirected) Size() int {
	total := 0
	for _, nbrs := range g.adj {
		total += len(nbrs)
	}
	return total / 2
}

// Degree returns the number of neighbours of v, 0 if v is absent.
func (g *Undirected) Degree(v int) int {
	return len(g.adj[v])
}

// Vertices returns all vertex ids in ascending order.
// Sorted so that algorithms iterating the graph are deterministic.
func (g *Undirected) Vertices() []int {
	vs := make([]int, 0, len(g.adj))
	for v := range g.adj {
		vs = append(vs, v)
	}
	sort.Ints(vs)
	return vs
}

// Neighbors returns the neighbours of v in ascending order.
func (g *Undirected) Neighbors(v int) []int {
	nbrs := make([]int, 0, len(g.adj[v]))
	for u := range g.adj[v] {
		nbrs = append(nbrs, u)
	}
	sort.Ints(nbrs)
	return nbrs
}

// Induce builds the subgraph induced by the given vertex set: the listed
// vertices plus every edge of g with both endpoints in the set. Vertices
// absent from g are still added as isolated vertices, so the result always
// has len(set) vertices (after de-duplication). The receiver is not mutated.
func (g *Undirected) Induce(set []int) *Undirected {
	sub := NewUndirected()
	members := make(map[int]struct{}, len(set))
	for _, v := range set {
		members[v] = struct{}{}
		sub.AddVertex(v)
	}
	for v := range members {
		for u := range g.adj[v] {
			if _, ok := members[u]; ok {
				sub.AddEdge(v, u)
			}
		}
	}
	return sub
}
