// Package mcp exposes the dataset store and the spatial FDR corrector as
// MCP tools, so agent frontends can drive the analysis without the REST API.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taviani/nhood/internal/store"
)

func NewMCPServer(st *store.Store) *mcp.Server {
	service := NewService(st)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "nhood",
		Version: "0.3.1",
	}, nil)

	// Register Tools using the generic AddTool which inspects the arg structs.

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_datasets",
		Description: "List the loaded differential-abundance datasets.",
	}, service.ListDatasets)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "run_correction",
		Description: "Run the spatial FDR correction on a dataset with the given weighting policy and store the result.",
	}, service.RunCorrection)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "query_results",
		Description: "List the neighbourhoods whose spatial FDR passes a threshold, most significant first.",
	}, service.QueryResults)

	return s
}
