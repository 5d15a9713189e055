package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Define global variables for metrics.
// We use 'promauto' which automatically registers metrics without complex initialization.

var (
	// 1. HTTP Requests Total (Counter)
	// Counts how many requests arrive, labeled by method, path, and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhood_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// 2. HTTP Request Duration (Histogram)
	// Measures server response time.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nhood_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
			// From trivial lookups to corrections over large KNN graphs.
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// 3. Corrections Total (Counter)
	// One increment per completed spatial FDR run, labeled by weighting
	// policy and outcome.
	CorrectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhood_corrections_total",
			Help: "Total number of spatial FDR corrections run",
		},
		[]string{"dataset", "weighting", "status"},
	)

	// 4. Correction Duration (Histogram)
	// Connectivity-based weightings dominate here; buckets go wide.
	CorrectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nhood_correction_duration_seconds",
			Help:    "Duration of spatial FDR corrections in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"dataset", "weighting"},
	)

	// 5. Dataset Neighbourhoods (Gauge)
	// Tracks how many neighbourhoods each loaded dataset carries.
	DatasetNeighbourhoods = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nhood_dataset_neighbourhoods",
			Help: "Number of neighbourhoods per loaded dataset",
		},
		[]string{"dataset"},
	)
)
