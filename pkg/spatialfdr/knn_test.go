package spatialfdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/taviani/nhood/pkg/coords"
)

func TestMeanPairwiseDistanceSingleton(t *testing.T) {
	rd := coords.FromRows([][]float64{{1, 1}})

	// No pairs to average over: the score is 0 and the weight transform
	// later zeroes the neighbourhood out instead of producing NaN.
	assert.Equal(t, 0.0, meanPairwiseDistance(rd, Neighbourhood{0}))
}

func TestMeanPairwiseDistanceExcludesDiagonal(t *testing.T) {
	// Two coincident points plus one at distance 5 from both.
	rd := coords.FromRows([][]float64{{0, 0}, {0, 0}, {3, 4}})
	got := meanPairwiseDistance(rd, Neighbourhood{0, 1, 2})

	// Pairs: (0,1)=0, (0,2)=5, (1,2)=5. Self-distances never enter.
	assert.InDelta(t, 10.0/3, got, 1e-12)
}

func TestMeanOfRowMeans(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{0, 3, 3, 1, 1, 4})
	assert.InDelta(t, 2.0, meanOfRowMeans(m), 1e-12)

	assert.Equal(t, 0.0, meanOfRowMeans(&mat.Dense{}))
}

func TestKthNearestDistance(t *testing.T) {
	rd := coords.FromRows([][]float64{{0, 0}, {1, 0}, {2, 0}, {10, 0}})

	// From the origin: neighbours at 1, 2, 10.
	assert.Equal(t, 1.0, kthNearestDistance(rd, 0, 1))
	assert.Equal(t, 2.0, kthNearestDistance(rd, 0, 2))
	assert.Equal(t, 10.0, kthNearestDistance(rd, 0, 3))
}

func TestKthNearestDistanceClampsK(t *testing.T) {
	rd := coords.FromRows([][]float64{{0}, {4}})

	// k larger than rows-1 clamps to the farthest available neighbour.
	assert.Equal(t, 4.0, kthNearestDistance(rd, 0, DefaultK))
}

func TestKthNearestDistanceTrivialMatrix(t *testing.T) {
	rd := coords.FromRows([][]float64{{0, 0}})
	assert.Equal(t, 0.0, kthNearestDistance(rd, 0, 5))
}
