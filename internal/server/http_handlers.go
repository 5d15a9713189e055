package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/taviani/nhood/internal/store"
	"github.com/taviani/nhood/pkg/coords"
	"github.com/taviani/nhood/pkg/graph"
	"github.com/taviani/nhood/pkg/metrics"
	"github.com/taviani/nhood/pkg/spatialfdr"
)

func (s *Server) handleDatasetCreate(w http.ResponseWriter, r *http.Request) {
	var req DatasetCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		s.writeHTTPError(w, http.StatusBadRequest, "name is required")
		return
	}

	ds, err := BuildDataset(&req, s.cfg.Precision)
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Store.CreateDataset(ds); err != nil {
		s.writeHTTPError(w, http.StatusConflict, err.Error())
		return
	}

	metrics.DatasetNeighbourhoods.WithLabelValues(ds.Name).Set(float64(len(ds.Neighbourhoods)))
	s.writeHTTPResponse(w, http.StatusCreated, map[string]string{"status": "OK", "dataset": ds.Name})
}

// BuildDataset converts the wire shape into store/library types.
func BuildDataset(req *DatasetCreateRequest, defaultPrecision string) (*store.Dataset, error) {
	g := graph.NewUndirected()
	for _, e := range req.Edges {
		g.AddEdge(e[0], e[1])
	}

	nhoods := make([]spatialfdr.Neighbourhood, len(req.Neighbourhoods))
	for i, members := range req.Neighbourhoods {
		nhoods[i] = spatialfdr.Neighbourhood(members)
	}

	var rd coords.Matrix
	if len(req.ReducedDims) > 0 {
		precision := req.Precision
		if precision == "" {
			precision = defaultPrecision
		}
		switch precision {
		case "", "float64":
			rd = coords.FromRows(req.ReducedDims)
		case "float16":
			rd = coords.PackFloat16(req.ReducedDims)
		default:
			return nil, fmt.Errorf("invalid precision %q (want float64 or float16)", precision)
		}
	}

	return &store.Dataset{
		Name:           req.Name,
		Graph:          g,
		Neighbourhoods: nhoods,
		Indices:        req.Indices,
		PValues:        ptrsToFloats(req.PValues),
		ReducedDims:    rd,
	}, nil
}

func (s *Server) handleDatasetList(w http.ResponseWriter, r *http.Request) {
	names := s.Store.ListDatasets()
	infos := make([]DatasetInfo, 0, len(names))
	for _, name := range names {
		d, ok := s.Store.GetDataset(name)
		if !ok {
			continue
		}
		infos = append(infos, DatasetInfo{
			Name:           d.Name,
			Neighbourhoods: len(d.Neighbourhoods),
			HasReducedDims: d.ReducedDims != nil,
			HasIndices:     d.Indices != nil,
		})
	}
	s.writeHTTPResponse(w, http.StatusOK, infos)
}

func (s *Server) handleDatasetDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.Store.DeleteDataset(name) {
		s.writeHTTPError(w, http.StatusNotFound, fmt.Sprintf("dataset '%s' not found", name))
		return
	}
	metrics.DatasetNeighbourhoods.DeleteLabelValues(name)
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ds, ok := s.Store.GetDataset(name)
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, fmt.Sprintf("dataset '%s' not found", name))
		return
	}

	// An empty body means "use the configured defaults".
	var req CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	names := []string(req.Weighting)
	if len(names) == 0 {
		names = []string{s.cfg.DefaultWeighting}
	}
	weighting, err := spatialfdr.ParseWeighting(names...)
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := req.K
	if k <= 0 {
		k = s.cfg.KDistanceK
	}

	// Per-run p-value overrides leave the stored dataset untouched.
	if req.PValues != nil {
		if len(req.PValues) != len(ds.PValues) {
			s.writeHTTPError(w, http.StatusBadRequest,
				fmt.Sprintf("p_values override has %d entries, dataset has %d", len(req.PValues), len(ds.PValues)))
			return
		}
		override := *ds
		override.PValues = ptrsToFloats(req.PValues)
		ds = &override
	}

	task := s.taskManager.NewTask(name, string(weighting))
	go s.runCorrection(task, ds, weighting, k)

	s.writeHTTPResponse(w, http.StatusAccepted, TaskStartedResponse{
		TaskID: task.ID,
		Status: string(TaskStatusStarted),
	})
}

// runCorrection executes one correction in the background and files the
// result (or the error) under the task.
func (s *Server) runCorrection(task *Task, ds *store.Dataset, weighting spatialfdr.Weighting, k int) {
	task.SetStatus(TaskStatusRunning)
	start := time.Now()

	adjusted, err := spatialfdr.Correct(context.Background(), spatialfdr.Request{
		Neighbourhoods: ds.Neighbourhoods,
		Graph:          ds.Graph,
		PValues:        ds.PValues,
		Weighting:      weighting,
		ReducedDims:    ds.ReducedDims,
		Indices:        ds.Indices,
		K:              k,
		Parallelism:    s.cfg.Parallelism,
	})

	metrics.CorrectionDuration.WithLabelValues(ds.Name, string(weighting)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CorrectionsTotal.WithLabelValues(ds.Name, string(weighting), "error").Inc()
		task.SetError(err)
		return
	}

	saveErr := s.Store.SaveResult(&store.ResultSet{
		Dataset:     ds.Name,
		Weighting:   string(weighting),
		Adjusted:    adjusted,
		CompletedAt: time.Now(),
	})
	if saveErr != nil {
		metrics.CorrectionsTotal.WithLabelValues(ds.Name, string(weighting), "error").Inc()
		task.SetError(saveErr)
		return
	}
	metrics.CorrectionsTotal.WithLabelValues(ds.Name, string(weighting), "ok").Inc()
	task.SetStatus(TaskStatusCompleted)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, ok := s.taskManager.GetTask(id)
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.View())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	result, ok := s.Store.GetResult(name)
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, fmt.Sprintf("no results for dataset '%s'", name))
		return
	}

	// With max_fdr the B-Tree answers the threshold query; without it the
	// full adjusted vector comes back.
	if raw := r.URL.Query().Get("max_fdr"); raw != "" {
		maxFDR, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, "max_fdr must be a number")
			return
		}
		items, _ := s.Store.QueryResults(name, maxFDR)
		resp := ResultQueryResponse{
			Dataset:   name,
			Weighting: result.Weighting,
			MaxFDR:    maxFDR,
			Items:     make([]ResultQueryItem, 0, len(items)),
		}
		for _, it := range items {
			resp.Items = append(resp.Items, ResultQueryItem{Nhood: it.Nhood, SpatialFDR: it.SpatialFDR})
		}
		s.writeHTTPResponse(w, http.StatusOK, resp)
		return
	}

	s.writeHTTPResponse(w, http.StatusOK, ResultsResponse{
		Dataset:    name,
		Weighting:  result.Weighting,
		SpatialFDR: floatsToPtrs(result.Adjusted),
	})
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, status int, message string) {
	s.writeHTTPResponse(w, status, map[string]string{"error": message})
}
