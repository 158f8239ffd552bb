// Package stats - per-run pipeline counters and the FPS window.
package stats

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/face-lab/go-detect/metrics"
)

// Snapshot is a point-in-time copy of the aggregator counters.
type Snapshot struct {
	FramesInWindow       int
	WindowStart          time.Time
	CurrentFPS           int
	CumulativeDetections int
	FilesProcessed       int
}

// Aggregator tracks throughput for the active run. The FPS figure is a
// plain frame count over the last full one-second window, recomputed
// whenever a frame lands at least a second after the window opened.
//
// All methods are safe for concurrent use; the pipeline loop feeds
// frames while status readers snapshot from other goroutines.
type Aggregator struct {
	mu sync.Mutex

	framesInWindow       int
	windowStart          time.Time
	currentFPS           int
	cumulativeDetections int
	filesProcessed       int

	clk clock.Clock
	mx  *metrics.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock substitutes the wall clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(a *Aggregator) { a.clk = clk }
}

// WithMetrics mirrors the counters into Prometheus collectors.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(a *Aggregator) { a.mx = mx }
}

// New creates an Aggregator with the window opened at the current time.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{clk: clock.New()}
	for _, opt := range opts {
		opt(a)
	}
	a.windowStart = a.clk.Now()
	return a
}

// OnFrame records one processed frame carrying detectionCount
// detections. If at least a second has passed since the window opened,
// the frame count becomes the new FPS reading and the window restarts
// at zero.
func (a *Aggregator) OnFrame(detectionCount int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.framesInWindow++
	a.cumulativeDetections += detectionCount

	now := a.clk.Now()
	if now.Sub(a.windowStart) >= time.Second {
		a.currentFPS = a.framesInWindow
		a.framesInWindow = 0
		a.windowStart = now
	}

	if a.mx != nil {
		a.mx.FramesProcessed.Add(1)
		a.mx.DetectionsTotal.Add(uint64(detectionCount))
		a.mx.CurrentFPS.Store(uint64(a.currentFPS))
	}
}

// OnFileProcessed records one decoded file in folder mode.
func (a *Aggregator) OnFileProcessed() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.filesProcessed++
	if a.mx != nil {
		a.mx.FilesProcessed.Add(1)
	}
}

// Reset zeroes every counter and reopens the window. The controller
// calls it at pipeline start so each run reports from a clean slate.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.framesInWindow = 0
	a.windowStart = a.clk.Now()
	a.currentFPS = 0
	a.cumulativeDetections = 0
	a.filesProcessed = 0

	if a.mx != nil {
		a.mx.CurrentFPS.Store(0)
	}
}

// Snapshot returns a copy of the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Snapshot{
		FramesInWindow:       a.framesInWindow,
		WindowStart:          a.windowStart,
		CurrentFPS:           a.currentFPS,
		CumulativeDetections: a.cumulativeDetections,
		FilesProcessed:       a.filesProcessed,
	}
}
