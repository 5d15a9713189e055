// Package server exposes the dataset store and the spatial FDR corrector
// over a small REST API. Corrections run asynchronously: clients get a task
// id back and poll it, since connectivity weightings over large KNN graphs
// can take a while.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taviani/nhood/internal/store"
)

// Server holds the HTTP interface and the shared dataset store.
type Server struct {
	Store *store.Store

	cfg         Config
	httpServer  *http.Server
	taskManager *TaskManager
}

// NewServer initializes the HTTP server around an existing store.
func NewServer(st *store.Store, cfg Config) *Server {
	s := &Server{
		Store:       st,
		cfg:         cfg,
		taskManager: NewTaskManager(),
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Chain middlewares: Recovery -> Logging -> Auth -> Mux
	// Order matters! Recovery must be outer-most to catch everything.
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	// Health and metrics stay outside auth so probes and scrapers work
	// without a token.
	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)

	s.httpServer = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: rootMux,
	}
	return s
}

func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /datasets", s.handleDatasetCreate)
	mux.HandleFunc("GET /datasets", s.handleDatasetList)
	mux.HandleFunc("DELETE /datasets/{name}", s.handleDatasetDelete)
	mux.HandleFunc("POST /datasets/{name}/correct", s.handleCorrect)
	mux.HandleFunc("GET /datasets/{name}/results", s.handleResults)
	mux.HandleFunc("GET /tasks/{id}", s.handleTaskStatus)
}

// Handler returns the full middleware chain, mainly so tests can mount
// the API on an httptest server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown() {
	log.Println("Starting graceful shutdown of HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
