package spatialfdr

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/taviani/nhood/pkg/coords"
)

func TestInvertWeights(t *testing.T) {
	got := invertWeights([]float64{2, 1, 0.5, 0})

	assert.Equal(t, []float64{0.5, 1, 2, 0}, got,
		"zero sources must invert to exactly 0, not +Inf")
}

func TestKDistanceDenseMatrix(t *testing.T) {
	// Row maxima are the stored k-th neighbour distances.
	d := mat.NewDense(3, 3, []float64{
		0, 1, 7,
		1, 0, 2,
		7, 2, 0,
	})
	req := &Request{
		Weighting: WeightingKDistance,
		Distances: DenseDistances{M: d},
	}
	got, err := kDistanceSources(context.Background(), req, []int{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 2, 7}, got)
}

func TestKDistancePerNeighbourhoodMatrices(t *testing.T) {
	req := &Request{
		Weighting: WeightingKDistance,
		Distances: NeighbourhoodDistances{
			5: mat.NewDense(2, 2, []float64{0, 3, 3, 0}),
			9: mat.NewDense(2, 2, []float64{0, 1.5, 1.5, 0}),
		},
	}
	got, err := kDistanceSources(context.Background(), req, []int{9, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 3}, got)
}

func TestKDistanceUnknownIndexVertex(t *testing.T) {
	req := &Request{
		Weighting: WeightingKDistance,
		Distances: NeighbourhoodDistances{5: mat.NewDense(1, 1, []float64{0})},
	}
	_, err := kDistanceSources(context.Background(), req, []int{7})
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestKDistanceFromReducedDims(t *testing.T) {
	// Five points on a line; with k=2 the 2nd nearest neighbour of the
	// endpoints sits two units away, one unit for interior points.
	rd := coords.FromRows([][]float64{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}})
	req := &Request{
		Weighting:   WeightingKDistance,
		ReducedDims: rd,
		K:           2,
	}
	got, err := kDistanceSources(context.Background(), req, []int{0, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1, 2}, got)
}

func TestKDistanceMissingInputsAreDistinguished(t *testing.T) {
	// No index vertices at all.
	_, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0, 1}},
		PValues:        []float64{0.5},
		Weighting:      WeightingKDistance,
		ReducedDims:    coords.FromRows([][]float64{{0}, {1}}),
	})
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), "index vertices")

	// Index vertices present, but nothing to measure distances with.
	_, err = Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0, 1}},
		PValues:        []float64{0.5},
		Weighting:      WeightingKDistance,
		Indices:        []int{0},
	})
	require.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), "distance source")
	assert.False(t, strings.Contains(err.Error(), "requires index vertices"))
}

func TestNeighbourDistancePrefersReducedDims(t *testing.T) {
	rd := coords.FromRows([][]float64{{0, 0}, {3, 0}, {0, 4}})
	req := &Request{
		Weighting:   WeightingNeighbourDistance,
		ReducedDims: rd,
		// A distance source is also present; reduced dims win.
		Distances: NeighbourhoodDistances{0: mat.NewDense(1, 1, []float64{99})},
	}
	got, err := neighbourDistanceSources(context.Background(), req, []Neighbourhood{{0, 1, 2}}, []int{0})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got[0], 1e-12)
}

func TestNeighbourDistanceFromMatrices(t *testing.T) {
	// Row means 2 and 4, mean of means 3.
	sub := mat.NewDense(2, 2, []float64{1, 3, 3, 5})
	req := &Request{
		Weighting: WeightingNeighbourDistance,
		Distances: NeighbourhoodDistances{4: sub},
	}
	got, err := neighbourDistanceSources(context.Background(), req, []Neighbourhood{{0, 1}}, []int{4})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got[0], 1e-12)
}

func TestNeighbourDistanceMissingInput(t *testing.T) {
	_, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0, 1}},
		PValues:        []float64{0.5},
		Weighting:      WeightingNeighbourDistance,
	})
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestNeighbourDistanceRejectsDenseMatrix(t *testing.T) {
	// The dense all-vertices matrix is a k-distance shape; without reduced
	// dims the neighbour-distance policy has nothing usable.
	_, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0, 1}},
		PValues:        []float64{0.5},
		Weighting:      WeightingNeighbourDistance,
		Distances:      DenseDistances{M: mat.NewDense(2, 2, []float64{0, 1, 1, 0})},
	})
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestConnectivityRequiresGraph(t *testing.T) {
	_, err := Correct(context.Background(), Request{
		Neighbourhoods: []Neighbourhood{{0, 1}},
		PValues:        []float64{0.5},
		Weighting:      WeightingVertex,
	})
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestParallelForCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := parallelFor(ctx, 100, 2, func(i int) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
