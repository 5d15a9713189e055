package server

import (
	"encoding/json"
	"math"
)

// JSON has no NaN, so missing p-values travel as null on both directions.
// The helpers at the bottom convert between the wire shape (*float64) and
// the library shape (NaN markers).

// DatasetCreateRequest loads one analysis into the store.
type DatasetCreateRequest struct {
	Name string `json:"name"`
	// Edges of the KNN graph as [from, to] vertex-id pairs.
	Edges [][2]int `json:"edges"`
	// Neighbourhoods as vertex-id lists, aligned with PValues.
	Neighbourhoods [][]int `json:"neighbourhoods"`
	// Indices optionally gives each neighbourhood's index vertex.
	Indices []int `json:"indices,omitempty"`
	// PValues from the differential-abundance test; null = missing.
	PValues []*float64 `json:"p_values"`
	// ReducedDims optionally carries per-cell embedding rows (by vertex id).
	ReducedDims [][]float64 `json:"reduced_dims,omitempty"`
	// Precision overrides the configured reduced-dims storage
	// ("float64" or "float16").
	Precision string `json:"precision,omitempty"`
}

// CorrectionRequest starts an async correction run.
type CorrectionRequest struct {
	// Weighting accepts a single policy name or a list of candidates;
	// only the first entry of a list is honored.
	Weighting StringOrList `json:"weighting"`
	// K overrides the k-distance neighbour count.
	K int `json:"k,omitempty"`
	// PValues optionally replaces the stored p-values for this run only,
	// e.g. to re-correct after re-testing. Must match the stored length;
	// null = missing.
	PValues []*float64 `json:"p_values,omitempty"`
}

// StringOrList unmarshals from either a JSON string or an array of strings.
type StringOrList []string

func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringOrList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = StringOrList(many)
	return nil
}

// TaskStartedResponse acknowledges an async request.
type TaskStartedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// DatasetInfo is the list-datasets entry.
type DatasetInfo struct {
	Name           string `json:"name"`
	Neighbourhoods int    `json:"neighbourhoods"`
	HasReducedDims bool   `json:"has_reduced_dims"`
	HasIndices     bool   `json:"has_indices"`
}

// ResultsResponse returns the full adjusted vector for a dataset.
type ResultsResponse struct {
	Dataset    string     `json:"dataset"`
	Weighting  string     `json:"weighting"`
	SpatialFDR []*float64 `json:"spatial_fdr"`
}

// ResultQueryItem is one neighbourhood passing a threshold query.
type ResultQueryItem struct {
	Nhood      int     `json:"nhood"`
	SpatialFDR float64 `json:"spatial_fdr"`
}

// ResultQueryResponse answers GET .../results?max_fdr=...
type ResultQueryResponse struct {
	Dataset   string            `json:"dataset"`
	Weighting string            `json:"weighting"`
	MaxFDR    float64           `json:"max_fdr"`
	Items     []ResultQueryItem `json:"items"`
}

// ptrsToFloats maps null to NaN.
func ptrsToFloats(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, p := range in {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	return out
}

// floatsToPtrs maps NaN back to null.
func floatsToPtrs(in []float64) []*float64 {
	out := make([]*float64, len(in))
	for i := range in {
		if !math.IsNaN(in[i]) {
			out[i] = &in[i]
		}
	}
	return out
}
