package spatialfdr

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/taviani/nhood/pkg/graph"
)

// weightSources computes one raw connectivity/density score per retained
// neighbourhood. nhoods and indices are already filtered by the missing-p
// mask; indices is nil when the caller supplied none.
//
// Connectivity is the dominant cost of the whole correction, and the scores
// are independent across neighbourhoods, so every policy fans out over a
// bounded worker group and writes to a private slot.
func weightSources(ctx context.Context, req *Request, nhoods []Neighbourhood, indices []int) ([]float64, error) {
	switch req.Weighting {
	case WeightingVertex, WeightingEdge:
		return connectivitySources(ctx, req, nhoods)
	case WeightingNeighbourDistance:
		return neighbourDistanceSources(ctx, req, nhoods, indices)
	case WeightingKDistance:
		return kDistanceSources(ctx, req, indices)
	default:
		// Correct validated the policy already.
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPolicy, req.Weighting)
	}
}

func connectivitySources(ctx context.Context, req *Request, nhoods []Neighbourhood) ([]float64, error) {
	if req.Graph == nil {
		return nil, fmt.Errorf("%w: %s weighting requires the KNN graph", ErrMissingInput, req.Weighting)
	}
	connectivity := graph.VertexConnectivity
	if req.Weighting == WeightingEdge {
		connectivity = graph.EdgeConnectivity
	}

	out := make([]float64, len(nhoods))
	err := parallelFor(ctx, len(nhoods), req.Parallelism, func(i int) error {
		// The induced subgraph restricts both vertices and edges to the
		// neighbourhood; the shared graph is only read.
		sub := req.Graph.Induce(nhoods[i])
		out[i] = float64(connectivity(sub))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func neighbourDistanceSources(ctx context.Context, req *Request, nhoods []Neighbourhood, indices []int) ([]float64, error) {
	// Reduced dimensions take precedence; precomputed per-neighbourhood
	// matrices are the fallback for pipelines that already paid for them.
	if req.ReducedDims != nil {
		out := make([]float64, len(nhoods))
		err := parallelFor(ctx, len(nhoods), req.Parallelism, func(i int) error {
			out[i] = meanPairwiseDistance(req.ReducedDims, nhoods[i])
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	switch d := req.Distances.(type) {
	case NeighbourhoodDistances:
		if indices == nil {
			return nil, fmt.Errorf("%w: per-neighbourhood distances are keyed by index vertex, but no index vertices were supplied", ErrMissingInput)
		}
		out := make([]float64, len(nhoods))
		for i, idx := range indices {
			sub, ok := d[idx]
			if !ok {
				return nil, fmt.Errorf("%w: no distance matrix for index vertex %d", ErrMissingInput, idx)
			}
			out[i] = meanOfRowMeans(sub)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%w: neighbour-distance weighting requires reduced dimensions or per-neighbourhood distances", ErrMissingInput)
	default:
		return nil, fmt.Errorf("%w: %T cannot serve neighbour-distance weighting", ErrTypeMismatch, req.Distances)
	}
}

func kDistanceSources(ctx context.Context, req *Request, indices []int) ([]float64, error) {
	// Index vertices and a distance source are independently necessary;
	// report which one is absent.
	if indices == nil {
		return nil, fmt.Errorf("%w: k-distance weighting requires index vertices", ErrMissingInput)
	}

	switch d := req.Distances.(type) {
	case DenseDistances:
		out := make([]float64, len(indices))
		for i, idx := range indices {
			out[i] = maxInRow(d.M, idx)
		}
		return out, nil
	case NeighbourhoodDistances:
		out := make([]float64, len(indices))
		for i, idx := range indices {
			sub, ok := d[idx]
			if !ok {
				return nil, fmt.Errorf("%w: no distance matrix for index vertex %d", ErrMissingInput, idx)
			}
			out[i] = matrixMax(sub)
		}
		return out, nil
	case nil:
		if req.ReducedDims == nil {
			return nil, fmt.Errorf("%w: k-distance weighting requires a distance source (dense matrix, per-neighbourhood matrices or reduced dimensions)", ErrMissingInput)
		}
		k := req.K
		if k <= 0 {
			k = DefaultK
		}
		out := make([]float64, len(indices))
		err := parallelFor(ctx, len(indices), req.Parallelism, func(i int) error {
			out[i] = kthNearestDistance(req.ReducedDims, indices[i], k)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T cannot serve k-distance weighting", ErrTypeMismatch, req.Distances)
	}
}

// maxInRow returns the largest entry of row idx. The diagonal zero never
// wins unless the whole row is zero, in which case 0 is the honest answer.
func maxInRow(m *mat.Dense, idx int) float64 {
	_, c := m.Dims()
	best := 0.0
	for j := 0; j < c; j++ {
		if v := m.At(idx, j); v > best {
			best = v
		}
	}
	return best
}

func matrixMax(m *mat.Dense) float64 {
	r, c := m.Dims()
	best := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v > best {
				best = v
			}
		}
	}
	return best
}

// parallelFor runs fn(0..n-1) on a bounded errgroup and waits for all of
// them. The first error (or context cancellation) wins.
func parallelFor(ctx context.Context, n, limit int, fn func(i int) error) error {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}
