package graph

// Vertex and edge connectivity via unit-capacity max flow (Dinic).
// Neighbourhood subgraphs are small (tens of cells), so running one flow
// per candidate vertex pair is cheap enough; no global min-cut machinery
// is needed.

// infCap stands in for an uncuttable arc in the vertex-split network.
const infCap = 1 << 30

// EdgeConnectivity returns the minimum number of edges whose removal
// disconnects g. Trivial (fewer than two vertices) or already disconnected
// graphs return 0.
func EdgeConnectivity(g *Undirected) int {
	n := g.Order()
	if n < 2 {
		return 0
	}
	vs := g.Vertices()
	id := make(map[int]int, n)
	for i, v := range vs {
		id[v] = i
	}

	// Fix the source: every cut separates it from at least one other vertex,
	// so min over all sinks of maxflow(source, sink) is the edge connectivity.
	best := infCap
	for t := 1; t < n; t++ {
		net := newFlowNetwork(n)
		for _, v := range vs {
			for _, u := range g.Neighbors(v) {
				if u > v {
					// One unit of capacity in each direction per undirected edge.
					net.addEdge(id[v], id[u], 1)
					net.addEdge(id[u], id[v], 1)
				}
			}
		}
		if f := net.maxFlow(0, t); f < best {
			best = f
		}
		if best == 0 {
			break
		}
	}
	return best
}

// VertexConnectivity returns the minimum number of vertices whose removal
// disconnects g or leaves a single vertex. Trivial or disconnected graphs
// return 0; the complete graph on n vertices returns n-1.
func VertexConnectivity(g *Undirected) int {
	n := g.Order()
	if n < 2 {
		return 0
	}
	vs := g.Vertices()

	// Complete graph has no separating set; report n-1 directly
	// (no vertex pair is non-adjacent, so the flow bound below never fires).
	complete := true
	for _, v := range vs {
		if g.Degree(v) != n-1 {
			complete = false
			break
		}
	}
	if complete {
		return n - 1
	}

	// Even's scheme: take a pivot and bound the connectivity by the local
	// connectivity between the pivot and each of its non-neighbours, then
	// between every non-adjacent pair of pivot neighbours. A minimum-degree
	// pivot keeps the neighbour-pair loop small.
	pivot := vs[0]
	for _, v := range vs {
		if g.Degree(v) < g.Degree(pivot) {
			pivot = v
		}
	}

	id := make(map[int]int, n)
	for i, v := range vs {
		id[v] = i
	}

	best := n - 1
	for _, u := range vs {
		if u == pivot || g.HasEdge(pivot, u) {
			continue
		}
		if k := localVertexConnectivity(g, id, pivot, u); k < best {
			best = k
		}
		if best == 0 {
			return 0
		}
	}
	nbrs := g.Neighbors(pivot)
	for i := 0; i < len(nbrs); i++ {
		for j := i + 1; j < len(nbrs); j++ {
			if g.HasEdge(nbrs[i], nbrs[j]) {
				continue
			}
			if k := localVertexConnectivity(g, id, nbrs[i], nbrs[j]); k < best {
				best = k
			}
			if best == 0 {
				return 0
			}
		}
	}
	return best
}

// localVertexConnectivity computes the minimum vertex cut separating s from t
// (s and t non-adjacent) by max flow on the vertex-split network: each vertex
// becomes an in/out pair joined by a unit arc, each edge becomes two
// uncuttable arcs between the pairs.
func localVertexConnectivity(g *Undirected, id map[int]int, s, t int) int {
	n := len(id)
	// in(v) = 2*id[v], out(v) = 2*id[v]+1
	net := newFlowNetwork(2 * n)
	for v, i := range id {
		capIn := 1
		if v == s || v == t {
			capIn = infCap
		}
		net.addEdge(2*i, 2*i+1, capIn)
		for _, u := range g.Neighbors(v) {
			net.addEdge(2*i+1, 2*id[u], infCap)
		}
	}
	return net.maxFlow(2*id[s]+1, 2*id[t])
}

// flowNetwork is a residual-capacity adjacency structure for Dinic's
// algorithm: level BFS from the source, then DFS blocking flows along the
// level graph until the sink becomes unreachable.
type flowNetwork struct {
	edges [][]flowEdge
	level []int
	iter  []int
}

type flowEdge struct {
	to  int
	rev int // index of the reverse edge in edges[to]
	cap int
}

func newFlowNetwork(n int) *flowNetwork {
	return &flowNetwork{
		edges: make([][]flowEdge, n),
		level: make([]int, n),
		iter:  make([]int, n),
	}
}

func (f *flowNetwork) addEdge(u, v, capacity int) {
	f.edges[u] = append(f.edges[u], flowEdge{to: v, rev: len(f.edges[v]), cap: capacity})
	f.edges[v] = append(f.edges[v], flowEdge{to: u, rev: len(f.edges[u]) - 1, cap: 0})
}

func (f *flowNetwork) maxFlow(s, t int) int {
	flow := 0
	for f.buildLevels(s, t) {
		for i := range f.iter {
			f.iter[i] = 0
		}
		for {
			pushed := f.push(s, t, infCap)
			if pushed == 0 {
				break
			}
			flow += pushed
		}
	}
	return flow
}

// buildLevels runs the BFS phase; returns false once t is unreachable.
func (f *flowNetwork) buildLevels(s, t int) bool {
	for i := range f.level {
		f.level[i] = -1
	}
	queue := []int{s}
	f.level[s] = 0
	for i := 0; i < len(queue); i++ {
		u := queue[i]
		for _, e := range f.edges[u] {
			if e.cap > 0 && f.level[e.to] < 0 {
				f.level[e.to] = f.level[u] + 1
				queue = append(queue, e.to)
			}
		}
	}
	return f.level[t] >= 0
}

// push sends one blocking-flow augmentation from u toward t, bounded by
// available, advancing per-vertex iterators so dead branches are not
// revisited within a phase.
func (f *flowNetwork) push(u, t, available int) int {
	if u == t {
		return available
	}
	for ; f.iter[u] < len(f.edges[u]); f.iter[u]++ {
		e := &f.edges[u][f.iter[u]]
		if e.cap <= 0 || f.level[e.to] != f.level[u]+1 {
			continue
		}
		send := available
		if e.cap < send {
			send = e.cap
		}
		pushed := f.push(e.to, t, send)
		if pushed > 0 {
			e.cap -= pushed
			f.edges[e.to][e.rev].cap += pushed
			return pushed
		}
	}
	return 0
}
