package mcp

// --- Tool Arguments ---

type ListDatasetsArgs struct{}

type ListDatasetsResult struct {
	Datasets []string `json:"datasets"`
}

type RunCorrectionArgs struct {
	Dataset   string `json:"dataset" jsonschema:"Name of a loaded dataset,required"`
	Weighting string `json:"weighting,omitempty" jsonschema:"Weighting policy: none, vertex, edge, neighbour-distance or k-distance. Defaults to k-distance."`
	K         int    `json:"k,omitempty" jsonschema:"Neighbour count for the k-distance policy (default 21)"`
}

type RunCorrectionResult struct {
	Dataset        string  `json:"dataset"`
	Weighting      string  `json:"weighting"`
	Neighbourhoods int     `json:"neighbourhoods"`
	Tested         int     `json:"tested"`
	SignificantAt  float64 `json:"significant_at"`
	Significant    int     `json:"significant"`
}

type QueryResultsArgs struct {
	Dataset string  `json:"dataset" jsonschema:"Name of a corrected dataset,required"`
	MaxFDR  float64 `json:"max_fdr,omitempty" jsonschema:"Spatial FDR threshold (default 0.1)"`
}

type QueryResultsItem struct {
	Nhood      int     `json:"nhood"`
	SpatialFDR float64 `json:"spatial_fdr"`
}

type QueryResultsResult struct {
	Dataset   string             `json:"dataset"`
	Weighting string             `json:"weighting"`
	MaxFDR    float64            `json:"max_fdr"`
	Items     []QueryResultsItem `json:"items"`
}
