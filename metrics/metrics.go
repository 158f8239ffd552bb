// Package metrics - Prometheus collectors for pipeline observability.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters. Components bump the atomics on
// their hot paths; Prometheus reads them lazily through GaugeFunc
// collectors on scrape, so instrumentation costs one atomic add per
// event.
type Metrics struct {
	// Frame flow
	FramesProcessed atomic.Uint64
	DetectionsTotal atomic.Uint64
	FilesProcessed  atomic.Uint64
	CropsSaved      atomic.Uint64
	FramesSaved     atomic.Uint64
	CurrentFPS      atomic.Uint64

	// Failure counters
	TransientFetchErrors atomic.Uint64
	InferenceErrors      atomic.Uint64
	ReadErrors           atomic.Uint64

	// Lifecycle
	RunsStarted   atomic.Uint64
	RunsCompleted atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry, so parallel
// tests and embedded uses never fight over collector names.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"facedetect_frames_processed_total", "Frames pulled from the active source and run through detection", m.FramesProcessed.Load},
		{"facedetect_detections_total", "Detections at or above the confidence threshold", m.DetectionsTotal.Load},
		{"facedetect_files_processed_total", "Files decoded in folder mode", m.FilesProcessed.Load},
		{"facedetect_crops_saved_total", "Detection crops written to disk", m.CropsSaved.Load},
		{"facedetect_frames_saved_total", "Annotated frames written to disk", m.FramesSaved.Load},
		{"facedetect_current_fps", "Frames per second over the last full window", m.CurrentFPS.Load},
		{"facedetect_transient_fetch_errors_total", "Failed shot-poll fetches that were retried", m.TransientFetchErrors.Load},
		{"facedetect_inference_errors_total", "Frames skipped because inference failed", m.InferenceErrors.Load},
		{"facedetect_read_errors_total", "Fatal source read failures", m.ReadErrors.Load},
		{"facedetect_runs_started_total", "Pipeline sessions started", m.RunsStarted.Load},
		{"facedetect_runs_completed_total", "Pipeline sessions ended, for any reason", m.RunsCompleted.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr and blocks until the listener fails.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
