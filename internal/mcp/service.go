package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taviani/nhood/internal/store"
	"github.com/taviani/nhood/pkg/spatialfdr"
)

// significanceThreshold is the default cutoff reported back to agents.
const significanceThreshold = 0.1

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// --- Tool Handlers ---

func (s *Service) ListDatasets(ctx context.Context, req *mcp.CallToolRequest, args ListDatasetsArgs) (*mcp.CallToolResult, ListDatasetsResult, error) {
	return nil, ListDatasetsResult{Datasets: s.store.ListDatasets()}, nil
}

func (s *Service) RunCorrection(ctx context.Context, req *mcp.CallToolRequest, args RunCorrectionArgs) (*mcp.CallToolResult, RunCorrectionResult, error) {
	ds, ok := s.store.GetDataset(args.Dataset)
	if !ok {
		return nil, RunCorrectionResult{}, fmt.Errorf("dataset '%s' not found", args.Dataset)
	}

	name := args.Weighting
	if name == "" {
		name = string(spatialfdr.WeightingKDistance)
	}
	weighting, err := spatialfdr.ParseWeighting(name)
	if err != nil {
		return nil, RunCorrectionResult{}, err
	}

	// MCP tools are synchronous; the caller's context bounds the run.
	adjusted, err := spatialfdr.Correct(ctx, spatialfdr.Request{
		Neighbourhoods: ds.Neighbourhoods,
		Graph:          ds.Graph,
		PValues:        ds.PValues,
		Weighting:      weighting,
		ReducedDims:    ds.ReducedDims,
		Indices:        ds.Indices,
		K:              args.K,
	})
	if err != nil {
		return nil, RunCorrectionResult{}, err
	}

	if err := s.store.SaveResult(&store.ResultSet{
		Dataset:     ds.Name,
		Weighting:   string(weighting),
		Adjusted:    adjusted,
		CompletedAt: time.Now(),
	}); err != nil {
		return nil, RunCorrectionResult{}, err
	}

	result := RunCorrectionResult{
		Dataset:        ds.Name,
		Weighting:      string(weighting),
		Neighbourhoods: len(adjusted),
		SignificantAt:  significanceThreshold,
	}
	for _, v := range adjusted {
		if math.IsNaN(v) {
			continue
		}
		result.Tested++
		if v <= significanceThreshold {
			result.Significant++
		}
	}
	return nil, result, nil
}

func (s *Service) QueryResults(ctx context.Context, req *mcp.CallToolRequest, args QueryResultsArgs) (*mcp.CallToolResult, QueryResultsResult, error) {
	result, ok := s.store.GetResult(args.Dataset)
	if !ok {
		return nil, QueryResultsResult{}, fmt.Errorf("no results for dataset '%s' (run a correction first)", args.Dataset)
	}

	maxFDR := args.MaxFDR
	if maxFDR <= 0 {
		maxFDR = significanceThreshold
	}
	items, _ := s.store.QueryResults(args.Dataset, maxFDR)

	out := QueryResultsResult{
		Dataset:   args.Dataset,
		Weighting: result.Weighting,
		MaxFDR:    maxFDR,
		Items:     make([]QueryResultsItem, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, QueryResultsItem{Nhood: it.Nhood, SpatialFDR: it.SpatialFDR})
	}
	return nil, out, nil
}
