package spatialfdr

import (
	"container/heap"

	"gonum.org/v1/gonum/mat"

	"github.com/taviani/nhood/pkg/coords"
)

// Geometric weight sources: mean pairwise distances and k-th nearest
// neighbour distances over the reduced-dimension embedding.

// meanPairwiseDistance averages the Euclidean distance over every unordered
// pair of neighbourhood members (strict triangle, so self-distances never
// drag the mean down). A singleton neighbourhood has no pairs and scores 0,
// which the weight transform then maps to zero importance.
func meanPairwiseDistance(m coords.Matrix, nhood Neighbourhood) float64 {
	if len(nhood) < 2 {
		return 0
	}
	_, c := m.Dims()
	ri := make([]float64, c)
	rj := make([]float64, c)

	var sum float64
	pairs := 0
	for i := 0; i < len(nhood); i++ {
		ri = m.Row(ri, nhood[i])
		for j := i + 1; j < len(nhood); j++ {
			rj = m.Row(rj, nhood[j])
			sum += coords.Euclidean(ri, rj)
			pairs++
		}
	}
	return sum / float64(pairs)
}

// meanOfRowMeans reduces a precomputed distance sub-matrix the same way the
// upstream pipeline does: average each row, then average the row means.
func meanOfRowMeans(m *mat.Dense) float64 {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return 0
	}
	var total float64
	for i := 0; i < r; i++ {
		var rowSum float64
		for j := 0; j < c; j++ {
			rowSum += m.At(i, j)
		}
		total += rowSum / float64(c)
	}
	return total / float64(r)
}

// kthNearestDistance returns the distance from row idx to its k-th nearest
// other row, by brute force over the matrix. k is clamped to rows-1 when the
// dataset is smaller than requested. A bounded max-heap keeps the k best
// candidates; its root is the answer.
func kthNearestDistance(m coords.Matrix, idx, k int) float64 {
	rows, c := m.Dims()
	if rows < 2 {
		return 0
	}
	if k > rows-1 {
		k = rows - 1
	}

	query := m.Row(make([]float64, c), idx)
	row := make([]float64, c)

	h := &distMaxHeap{}
	heap.Init(h)
	for i := 0; i < rows; i++ {
		if i == idx {
			continue
		}
		row = m.Row(row, i)
		d := coords.Euclidean(query, row)
		if h.Len() < k {
			heap.Push(h, d)
		} else if d < (*h)[0] {
			// Closer than the worst of the current k best: replace it.
			(*h)[0] = d
			heap.Fix(h, 0)
		}
	}
	return (*h)[0]
}

// distMaxHeap is a max-heap of distances: the root is the farthest of the
// k nearest neighbours found so far.
type distMaxHeap []float64

func (h distMaxHeap) Len() int           { return len(h) }
func (h distMaxHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h distMaxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *distMaxHeap) Push(x any) { *h = append(*h, x.(float64)) }

func (h *distMaxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
