package spatialfdr

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taviani/nhood/pkg/coords"
	"github.com/taviani/nhood/pkg/graph"
)

// classicBH is an independent reference implementation of the unweighted
// Benjamini-Hochberg adjustment, used to pin the weighted procedure to the
// classical special case.
func classicBH(pvals []float64) []float64 {
	n := len(pvals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })

	adj := make([]float64, n)
	for r, i := range order {
		adj[r] = float64(n) * pvals[i] / float64(r+1)
	}
	for r := n - 2; r >= 0; r-- {
		if adj[r+1] < adj[r] {
			adj[r] = adj[r+1]
		}
	}
	out := make([]float64, n)
	for r, i := range order {
		out[i] = math.Min(adj[r], 1)
	}
	return out
}

func TestWeightedBHUniformMatchesClassic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pvals := make([]float64, 50)
	weights := make([]float64, 50)
	for i := range pvals {
		pvals[i] = rng.Float64()
		weights[i] = 1
	}

	got := weightedBH(pvals, weights)
	want := classicBH(pvals)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "position %d", i)
	}
}

func TestWeightedBHThreeNeighbourhoods(t *testing.T) {
	// Classical example: sorted p = [0.01 0.04 0.2] adjusts to
	// [0.03 0.06 0.2], restored to input order.
	got := weightedBH([]float64{0.01, 0.2, 0.04}, []float64{1, 1, 1})

	assert.InDelta(t, 0.03, got[0], 1e-12)
	assert.InDelta(t, 0.2, got[1], 1e-12)
	assert.InDelta(t, 0.06, got[2], 1e-12)
}

func TestWeightedBHRedundantNeighbourhoodCountsLess(t *testing.T) {
	pvals := []float64{0.01, 0.2, 0.04}

	uniform := weightedBH(pvals, []float64{1, 1, 1})
	// Neighbourhood 3 is deemed highly redundant: large weight means its
	// p-value absorbs most of the cumulative mass, so its own adjustment
	// shrinks relative to the uniform case.
	skewed := weightedBH(pvals, []float64{1, 1, 100})

	assert.Less(t, skewed[2], uniform[2])
	// The cumulative weight under the smallest p is still 1, so its raw
	// value is total*0.01 and the cumulative minimum pulls it down to the
	// second rank: the denominator is per-rank, not global.
	assert.InDelta(t, 102.0*0.04/101, skewed[0], 1e-12)
}

func TestWeightedBHZeroWeightDoesNotCrash(t *testing.T) {
	got := weightedBH([]float64{0.01, 0.2, 0.04}, []float64{0, 1, 1})

	for i, v := range got {
		assert.False(t, math.IsNaN(v), "position %d is NaN", i)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	// The zero-weight neighbourhood is rescued by the cumulative minimum of
	// the later ranks, not reported as infinite.
	assert.InDelta(t, 0.08, got[0], 1e-12)
}

func TestWeightedBHStepUpMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pvals := make([]float64, 40)
	weights := make([]float64, 40)
	for i := range pvals {
		pvals[i] = rng.Float64()
		weights[i] = rng.Float64() * 5
	}

	adj := weightedBH(pvals, weights)

	order := make([]int, len(pvals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })
	for r := 1; r < len(order); r++ {
		assert.LessOrEqual(t, adj[order[r-1]], adj[order[r]],
			"adjusted values must be non-decreasing in p-value order")
	}
}

// triangleAndEdge builds the small fixture used across Correct tests:
// a triangle 0-1-2 plus the lone edge 3-4.
func triangleAndEdge() *graph.Undirected {
	g := graph.NewUndirected()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 0)
	g.AddEdge(3, 4)
	return g
}

func TestCorrectVertexWeighting(t *testing.T) {
	req := Request{
		Neighbourhoods: []Neighbourhood{{0, 1, 2}, {3, 4}, {0, 1}},
		Graph:          triangleAndEdge(),
		PValues:        []float64{0.01, 0.2, 0.04},
		Weighting:      WeightingVertex,
	}
	got, err := Correct(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Connectivities 2, 1, 1 give weights [0.5 1 1]:
	// sorted p [0.01 0.04 0.2], cumW [0.5 1.5 2.5], total 2.5,
	// raw [0.05 0.0667 0.2], already monotone.
	assert.InDelta(t, 0.05, got[0], 1e-12)
	assert.InDelta(t, 0.2, got[1], 1e-12)
	assert.InDelta(t, 2.5*0.04/1.5, got[2], 1e-12)
}

func TestCorrectEdgeWeighting(t *testing.T) {
	req := Request{
		Neighbourhoods: []Neighbourhood{{0, 1, 2}, {3, 4}, {0, 1}},
		Graph:          triangleAndEdge(),
		PValues:        []float64{0.01, 0.2, 0.04},
		Weighting:      WeightingEdge,
	}
	got, err := Correct(context.Background(), req)
	require.NoError(t, err)

	// Same connectivities as the vertex case on this fixture.
	assert.InDelta(t, 0.05, got[0], 1e-12)
	assert.InDelta(t, 0.2, got[1], 1e-12)
	assert.InDelta(t, 2.5*0.04/1.5, got[2], 1e-12)
}

func TestCorrectDisconnectedNeighbourhoodGetsZeroWeight(t *testing.T) {
	// {0, 3} has no internal edge: connectivity 0, inverse weight 0.
	req := Request{
		Neighbourhoods: []Neighbourhood{{0, 3}, {0, 1, 2}, {3, 4}},
		Graph:          triangleAndEdge(),
		PValues:        []float64{0.01, 0.2, 0.04},
		Weighting:      WeightingVertex,
	}
	got, err := Correct(context.Background(), req)
	require.NoError(t, err)
	for i, v := range got {
		assert.False(t, math.IsNaN(v), "position %d", i)
		assert.True(t, v >= 0 && v <= 1, "position %d out of range: %v", i, v)
	}
}

func TestCorrectNonePolicyBypasses(t *testing.T) {
	// No other inputs at all: the bypass must not look at them.
	got, err := Correct(context.Background(), Request{
		PValues:   []float64{0.5, 0.01, math.NaN(), 0.9},
		Weighting: WeightingNone,
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, v := range got {
		assert.True(t, math.IsNaN(v), "position %d should be NaN, got %v", i, v)
	}
}

func TestCorrectPreservesMissingPositions(t *testing.T) {
	g := triangleAndEdge()
	req := Request{
		Neighbourhoods: []Neighbourhood{{0, 1, 2}, {3, 4}, {0, 1}, {1, 2}},
		Graph:          g,
		PValues:        []float64{0.01, math.NaN(), 0.2, 0.04},
		Weighting:      WeightingVertex,
	}
	got, err := Correct(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.True(t, math.IsNaN(got[1]), "missing input must stay missing")

	// The retained positions must match a correction run on the compacted
	// inputs: masking is positionally exact and side-effect free.
	compact, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0, 1, 2}, {0, 1}, {1, 2}},
		Graph:          g,
		PValues:        []float64{0.01, 0.2, 0.04},
		Weighting:      WeightingVertex,
	})
	require.NoError(t, err)
	assert.Equal(t, compact[0], got[0])
	assert.Equal(t, compact[1], got[2])
	assert.Equal(t, compact[2], got[3])
}

func TestCorrectAllMissing(t *testing.T) {
	got, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0}, {1}},
		Graph:          triangleAndEdge(),
		PValues:        []float64{math.NaN(), math.NaN()},
		Weighting:      WeightingVertex,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
}

func TestCorrectUnsupportedPolicy(t *testing.T) {
	_, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0}},
		PValues:        []float64{0.5},
		Weighting:      Weighting("bogus"),
	})
	require.ErrorIs(t, err, ErrUnsupportedPolicy)
}

func TestCorrectShapeMismatch(t *testing.T) {
	_, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0}, {1}},
		Graph:          triangleAndEdge(),
		PValues:        []float64{0.5},
		Weighting:      WeightingVertex,
	})
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0}},
		Graph:          triangleAndEdge(),
		PValues:        []float64{0.5},
		Indices:        []int{0, 1},
		Weighting:      WeightingVertex,
	})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCorrectNeighbourDistance(t *testing.T) {
	// Right triangle 3-4-5: pairwise distances 3, 4, 5, mean 4.
	rd := coords.FromRows([][]float64{{0, 0}, {3, 0}, {0, 4}})
	got, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0, 1, 2}},
		PValues:        []float64{0.02},
		Weighting:      WeightingNeighbourDistance,
		ReducedDims:    rd,
	})
	require.NoError(t, err)
	// Single test: totalW*p/cumW = p regardless of the weight value.
	assert.InDelta(t, 0.02, got[0], 1e-12)
}

func TestParseWeighting(t *testing.T) {
	w, err := ParseWeighting("vertex")
	require.NoError(t, err)
	assert.Equal(t, WeightingVertex, w)

	// A list of candidates: first one wins, the rest are ignored even if
	// invalid.
	w, err = ParseWeighting("k-distance", "bogus")
	require.NoError(t, err)
	assert.Equal(t, WeightingKDistance, w)

	_, err = ParseWeighting("bogus", "vertex")
	require.ErrorIs(t, err, ErrUnsupportedPolicy)

	_, err = ParseWeighting()
	require.ErrorIs(t, err, ErrUnsupportedPolicy)
}

func TestCorrectOutputAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	g := graph.NewUndirected()
	for i := 0; i < 30; i++ {
		g.AddEdge(i, (i+1)%30)
		g.AddEdge(i, (i+2)%30)
	}
	nhoods := make([]Neighbourhood, 20)
	pvals := make([]float64, 20)
	for i := range nhoods {
		start := rng.Intn(30)
		nhoods[i] = Neighbourhood{start, (start + 1) % 30, (start + 2) % 30, (start + 3) % 30}
		pvals[i] = rng.Float64()
	}
	pvals[3] = math.NaN()
	pvals[11] = math.NaN()

	got, err := Correct(context.Background(), Request{
		Neighbourhoods: nhoods,
		Graph:          g,
		PValues:        pvals,
		Weighting:      WeightingVertex,
	})
	require.NoError(t, err)
	require.Len(t, got, len(pvals))
	for i, v := range got {
		if math.IsNaN(pvals[i]) {
			assert.True(t, math.IsNaN(v), "position %d", i)
			continue
		}
		assert.True(t, v >= 0 && v <= 1, "position %d out of range: %v", i, v)
	}
}
