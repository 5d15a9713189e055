// Package store keeps loaded datasets and their correction results in
// memory. The corrector itself is pure; everything stateful lives here so
// the HTTP and MCP surfaces can share one registry.
package store

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/taviani/nhood/pkg/coords"
	"github.com/taviani/nhood/pkg/graph"
	"github.com/taviani/nhood/pkg/spatialfdr"
)

// Dataset is one loaded analysis: the KNN graph, the neighbourhood list and
// everything the weighting policies may need. All fields are read-only once
// the dataset is registered.
type Dataset struct {
	Name           string
	Graph          *graph.Undirected
	Neighbourhoods []spatialfdr.Neighbourhood
	Indices        []int
	PValues        []float64
	ReducedDims    coords.Matrix
}

// ResultSet is the outcome of one correction run over a dataset.
// Adjusted is positionally aligned with the dataset's neighbourhoods;
// missing inputs stay NaN.
type ResultSet struct {
	Dataset     string
	Weighting   string
	Adjusted    []float64
	CompletedAt time.Time
}

// ResultItem is one entry of the ordered spatial-FDR index.
type ResultItem struct {
	SpatialFDR float64
	Nhood      int
}

// resultItemLess orders items by adjusted p-value; ties fall back to the
// neighbourhood position to keep items distinct in the tree.
func resultItemLess(a, b ResultItem) bool {
	if a.SpatialFDR < b.SpatialFDR {
		return true
	}
	if a.SpatialFDR > b.SpatialFDR {
		return false
	}
	return a.Nhood < b.Nhood
}

// Store is the in-memory registry. A single RWMutex is enough: datasets are
// written once and read by many correction runs.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	results  map[string]*ResultSet

	// fdrIndex mirrors results as a B-Tree ordered by adjusted p-value,
	// so threshold queries do not rescan the whole result vector.
	fdrIndex map[string]*btree.BTreeG[ResultItem]
}

func NewStore() *Store {
	return &Store{
		datasets: make(map[string]*Dataset),
		results:  make(map[string]*ResultSet),
		fdrIndex: make(map[string]*btree.BTreeG[ResultItem]),
	}
}

// CreateDataset registers a dataset under its name.
func (s *Store) CreateDataset(d *Dataset) error {
	if d.Name == "" {
		return fmt.Errorf("dataset name is required")
	}
	if len(d.Neighbourhoods) != len(d.PValues) {
		return fmt.Errorf("dataset '%s': %d neighbourhoods for %d p-values",
			d.Name, len(d.Neighbourhoods), len(d.PValues))
	}
	if d.Indices != nil && len(d.Indices) != len(d.PValues) {
		return fmt.Errorf("dataset '%s': %d index vertices for %d p-values",
			d.Name, len(d.Indices), len(d.PValues))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[d.Name]; ok {
		return fmt.Errorf("dataset '%s' already exists", d.Name)
	}
	s.datasets[d.Name] = d
	return nil
}

// GetDataset retrieves a dataset by name.
func (s *Store) GetDataset(name string) (*Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.datasets[name]
	return d, ok
}

// ListDatasets returns the registered dataset names.
func (s *Store) ListDatasets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	return names
}

// DeleteDataset removes a dataset and any result computed for it.
func (s *Store) DeleteDataset(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[name]; !ok {
		return false
	}
	delete(s.datasets, name)
	delete(s.results, name)
	delete(s.fdrIndex, name)
	return true
}

// SaveResult stores the latest correction for a dataset, replacing any
// previous one, and rebuilds the ordered index. NaN entries (missing
// p-values, or the 'none' policy bypass) are kept in the vector but never
// enter the index.
func (s *Store) SaveResult(r *ResultSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[r.Dataset]; !ok {
		return fmt.Errorf("dataset '%s' not found", r.Dataset)
	}

	idx := btree.NewBTreeG[ResultItem](resultItemLess)
	for i, v := range r.Adjusted {
		if math.IsNaN(v) {
			continue
		}
		idx.Set(ResultItem{SpatialFDR: v, Nhood: i})
	}
	s.results[r.Dataset] = r
	s.fdrIndex[r.Dataset] = idx
	return nil
}

// GetResult returns the latest correction for a dataset.
func (s *Store) GetResult(dataset string) (*ResultSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[dataset]
	return r, ok
}

// QueryResults returns, in ascending adjusted-p order, the neighbourhoods
// whose spatial FDR is at most maxFDR. The second return is false when no
// result has been computed for the dataset yet.
func (s *Store) QueryResults(dataset string, maxFDR float64) ([]ResultItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.fdrIndex[dataset]
	if !ok {
		return nil, false
	}
	var items []ResultItem
	idx.Scan(func(item ResultItem) bool {
		if item.SpatialFDR > maxFDR {
			return false
		}
		items = append(items, item)
		return true
	})
	return items, true
}
