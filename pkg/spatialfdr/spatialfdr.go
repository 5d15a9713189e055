// Package spatialfdr corrects differential-abundance p-values for the
// spatial overlap between KNN-graph neighbourhoods.
//
// Overlapping neighbourhoods are not independent tests, so a plain
// Benjamini-Hochberg correction over-counts them. This package runs a
// weighted BH procedure instead: each neighbourhood gets a weight inversely
// proportional to a connectivity or density score, so redundant
// neighbourhoods contribute less to the correction.
//
// Correct is a pure function: it keeps no state, mutates none of its inputs
// and owns its output.
package spatialfdr

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/taviani/nhood/pkg/coords"
	"github.com/taviani/nhood/pkg/graph"
)

// Weighting selects how per-neighbourhood weights are derived.
type Weighting string

const (
	// WeightingNone bypasses the correction entirely and returns an
	// all-missing vector.
	WeightingNone Weighting = "none"
	// WeightingVertex scores each neighbourhood by the vertex connectivity
	// of its induced subgraph.
	WeightingVertex Weighting = "vertex"
	// WeightingEdge scores each neighbourhood by the edge connectivity of
	// its induced subgraph.
	WeightingEdge Weighting = "edge"
	// WeightingNeighbourDistance scores each neighbourhood by the mean
	// pairwise distance among its member cells.
	WeightingNeighbourDistance Weighting = "neighbour-distance"
	// WeightingKDistance scores each neighbourhood by the distance from its
	// index cell to that cell's k-th nearest neighbour.
	WeightingKDistance Weighting = "k-distance"
)

// DefaultK is the neighbour count used by the k-distance policy when the
// distance has to be recomputed from reduced dimensions. The value is
// deliberately independent of the k used to build the KNN graph.
const DefaultK = 21

// ParseWeighting resolves a weighting policy from candidate names.
// When several are given only the first is honored; this mirrors callers
// that pass a vector of defaults and is a documented fallback, not an error.
func ParseWeighting(names ...string) (Weighting, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no weighting name given", ErrUnsupportedPolicy)
	}
	w := Weighting(names[0])
	switch w {
	case WeightingNone, WeightingVertex, WeightingEdge, WeightingNeighbourDistance, WeightingKDistance:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPolicy, names[0])
	}
}

// Neighbourhood is a set of graph vertex ids treated as one testing unit.
type Neighbourhood []int

// DistanceSource is the tagged union of precomputed distance shapes.
// Exactly two implementations exist: DenseDistances and
// NeighbourhoodDistances.
type DistanceSource interface {
	isDistanceSource()
}

// DenseDistances is one matrix of pairwise distances covering all relevant
// vertices; rows and columns are indexed by vertex id.
type DenseDistances struct {
	M *mat.Dense
}

func (DenseDistances) isDistanceSource() {}

// NeighbourhoodDistances holds one distance sub-matrix per neighbourhood,
// keyed by the neighbourhood's index vertex id. Keying by the integer id
// replaces the stringified-id lookup older pipelines used.
type NeighbourhoodDistances map[int]*mat.Dense

func (NeighbourhoodDistances) isDistanceSource() {}

// Request carries everything Correct needs. Neighbourhoods, PValues and
// Indices (when supplied) are positionally aligned. Missing p-values are
// marked with NaN.
type Request struct {
	Neighbourhoods []Neighbourhood
	Graph          *graph.Undirected
	PValues        []float64
	Weighting      Weighting

	// ReducedDims holds per-cell embedding coordinates, rows indexed by
	// vertex id. Needed by neighbour-distance (unless per-neighbourhood
	// distances are given) and by k-distance as a fallback.
	ReducedDims coords.Matrix

	// Distances optionally supplies precomputed distances.
	Distances DistanceSource

	// Indices gives each neighbourhood's index (seed) vertex.
	// Required by the k-distance policy.
	Indices []int

	// K overrides DefaultK for the k-distance recomputation path.
	K int

	// Parallelism bounds the weight-computation workers; 0 means GOMAXPROCS.
	Parallelism int
}

// Correct returns one adjusted p-value per input p-value. Positions whose
// input was NaN come back NaN; everything else lands in [0,1]. The
// correction accounts for neighbourhood overlap through the chosen
// weighting policy.
func Correct(ctx context.Context, req Request) ([]float64, error) {
	switch req.Weighting {
	case WeightingNone, WeightingVertex, WeightingEdge, WeightingNeighbourDistance, WeightingKDistance:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPolicy, req.Weighting)
	}

	n := len(req.PValues)

	// Explicit bypass: no weights, no correction, just the missing marker.
	// This is unrelated to the NaN filtering below.
	if req.Weighting == WeightingNone {
		return nanVector(n), nil
	}

	if len(req.Neighbourhoods) != n {
		return nil, fmt.Errorf("%w: %d neighbourhoods for %d p-values",
			ErrShapeMismatch, len(req.Neighbourhoods), n)
	}
	if req.Indices != nil && len(req.Indices) != n {
		return nil, fmt.Errorf("%w: %d index vertices for %d p-values",
			ErrShapeMismatch, len(req.Indices), n)
	}

	// Drop missing p-values and remember where they came from. The
	// neighbourhood and index lists are filtered by the same mask, so
	// weights are only ever computed for testable neighbourhoods.
	kept := make([]int, 0, n)
	for i, p := range req.PValues {
		if !math.IsNaN(p) {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		return nanVector(n), nil
	}

	pvals := make([]float64, len(kept))
	nhoods := make([]Neighbourhood, len(kept))
	var indices []int
	if req.Indices != nil {
		indices = make([]int, len(kept))
	}
	for j, i := range kept {
		pvals[j] = req.PValues[i]
		nhoods[j] = req.Neighbourhoods[i]
		if indices != nil {
			indices[j] = req.Indices[i]
		}
	}

	sources, err := weightSources(ctx, &req, nhoods, indices)
	if err != nil {
		return nil, err
	}

	weights := invertWeights(sources)
	adjusted := weightedBH(pvals, weights)

	out := nanVector(n)
	for j, i := range kept {
		out[i] = adjusted[j]
	}
	return out, nil
}

// invertWeights turns connectivity/density scores into BH weights.
// A zero score (e.g. a disconnected induced subgraph) would invert to +Inf
// and dominate the correction; such neighbourhoods get weight 0 instead.
func invertWeights(sources []float64) []float64 {
	weights := make([]float64, len(sources))
	for i, s := range sources {
		w := 1 / s
		if math.IsInf(w, 0) {
			w = 0
		}
		weights[i] = w
	}
	return weights
}

// weightedBH runs the weighted Benjamini-Hochberg step-up adjustment.
// With all weights equal it reduces to the classical BH correction.
func weightedBH(pvals, weights []float64) []float64 {
	n := len(pvals)

	// 1) Sort ascending by p-value; stable so ties keep input order.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pvals[order[a]] < pvals[order[b]]
	})

	sortedP := make([]float64, n)
	sortedW := make([]float64, n)
	for r, i := range order {
		sortedP[r] = pvals[i]
		sortedW[r] = weights[i]
	}

	// 2) Cumulative weights replace the rank in the classical formula.
	cumW := floats.CumSum(make([]float64, n), sortedW)
	totalW := cumW[n-1]

	// 3) raw[r] = totalW * p / cumW[r]. A zero cumulative weight means no
	//    evidence mass up to this rank; the value is pushed to the ceiling
	//    rather than left as 0/0.
	adjusted := make([]float64, n)
	for r := range adjusted {
		if cumW[r] == 0 {
			adjusted[r] = math.Inf(1)
			continue
		}
		adjusted[r] = totalW * sortedP[r] / cumW[r]
	}

	// 4) Reverse cumulative minimum enforces step-up monotonicity.
	for r := n - 2; r >= 0; r-- {
		if adjusted[r+1] < adjusted[r] {
			adjusted[r] = adjusted[r+1]
		}
	}

	// 5) Undo the sort, 6) clip to 1.
	out := make([]float64, n)
	for r, i := range order {
		out[i] = math.Min(adjusted[r], 1)
	}
	return out
}

func nanVector(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
