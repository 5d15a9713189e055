package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taviani/nhood/internal/mcp"
	"github.com/taviani/nhood/internal/server"
	"github.com/taviani/nhood/internal/store"
	"github.com/taviani/nhood/pkg/spatialfdr"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	httpAddr := flag.String("http-addr", "", "Listen address for the REST API (overrides the config)")
	mcpMode := flag.Bool("mcp", false, "Serve MCP tools over stdio instead of HTTP")
	runPath := flag.String("run", "", "One-shot mode: read a dataset JSON file, run the correction, print adjusted p-values and exit")
	weighting := flag.String("weighting", "", "Weighting policy for one-shot mode (overrides the config default)")
	k := flag.Int("k", 0, "Neighbour count for the k-distance policy (0 = default)")

	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}

	if *runPath != "" {
		if err := runOnce(cfg, *runPath, *weighting, *k); err != nil {
			log.Fatalf("Correction failed: %v", err)
		}
		return
	}

	st := store.NewStore()

	if *mcpMode {
		// Stdio transport: the agent frontend owns the process lifecycle.
		if err := mcp.NewMCPServer(st).Run(context.Background(), &mcpsdk.StdioTransport{}); err != nil {
			log.Fatalf("MCP server stopped: %v", err)
		}
		return
	}

	srv := server.NewServer(st, cfg)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatal(err)
		}
	}()

	<-shutdownChan
	srv.Shutdown()
}

// runOnce serves batch pipelines that don't want the daemon: load the
// dataset file, correct, print the adjusted vector as JSON (null = missing).
func runOnce(cfg server.Config, path, weightingFlag string, k int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var req server.DatasetCreateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	ds, err := server.BuildDataset(&req, cfg.Precision)
	if err != nil {
		return err
	}

	name := weightingFlag
	if name == "" {
		name = cfg.DefaultWeighting
	}
	policy, err := spatialfdr.ParseWeighting(name)
	if err != nil {
		return err
	}
	if k <= 0 {
		k = cfg.KDistanceK
	}

	adjusted, err := spatialfdr.Correct(context.Background(), spatialfdr.Request{
		Neighbourhoods: ds.Neighbourhoods,
		Graph:          ds.Graph,
		PValues:        ds.PValues,
		Weighting:      policy,
		ReducedDims:    ds.ReducedDims,
		Indices:        ds.Indices,
		K:              k,
		Parallelism:    cfg.Parallelism,
	})
	if err != nil {
		return err
	}

	// JSON has no NaN; missing entries go out as null.
	out := make([]*float64, len(adjusted))
	for i := range adjusted {
		if !math.IsNaN(adjusted[i]) {
			out[i] = &adjusted[i]
		}
	}
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(out)
}
