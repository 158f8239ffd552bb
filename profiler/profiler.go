// Package profiler logs periodic process health reports next to
// pipeline throughput, for watching long capture sessions.
package profiler

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/face-lab/go-detect/stats"
)

// DefaultInterval is how often a started profiler emits a report.
const DefaultInterval = 5 * time.Second

// Profiler samples runtime counters (goroutines, heap, GC) on a fixed
// interval and logs them together with the current pipeline snapshot.
type Profiler struct {
	log      *zap.SugaredLogger
	clk      clock.Clock
	interval time.Duration
	snapshot func() stats.Snapshot

	mu          sync.Mutex
	running     bool
	stop        chan struct{}
	done        chan struct{}
	started     time.Time
	lastGCCount uint32
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithClock substitutes the wall clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(p *Profiler) { p.clk = clk }
}

// WithInterval sets the reporting interval.
func WithInterval(d time.Duration) Option {
	return func(p *Profiler) {
		if d > 0 {
			p.interval = d
		}
	}
}

// New creates a profiler that reads pipeline throughput from snapshot.
// A nil snapshot is allowed; reports then carry runtime fields only.
func New(log *zap.SugaredLogger, snapshot func() stats.Snapshot, opts ...Option) *Profiler {
	p := &Profiler{
		log:      log,
		clk:      clock.New(),
		interval: DefaultInterval,
		snapshot: snapshot,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.started = p.clk.Now()
	return p
}

// Start launches the reporting goroutine. Calling Start on a running
// profiler is a no-op.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.started = p.clk.Now()
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go p.loop(p.stop, p.done)
}

// Stop halts reporting and waits for the goroutine to exit. Stopping a
// profiler that is not running is a no-op.
func (p *Profiler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop, done := p.stop, p.done
	p.mu.Unlock()

	close(stop)
	<-done
}

func (p *Profiler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := p.clk.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.report()
		}
	}
}

// report emits one structured health entry.
func (p *Profiler) report() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.Lock()
	uptime := p.clk.Now().Sub(p.started)
	newGC := mem.NumGC - p.lastGCCount
	p.lastGCCount = mem.NumGC
	p.mu.Unlock()

	fields := []interface{}{
		"uptime", uptime.Truncate(time.Millisecond),
		"goroutines", runtime.NumGoroutine(),
		"heap_alloc", formatBytes(mem.HeapAlloc),
		"heap_objects", mem.HeapObjects,
		"gc_cycles", mem.NumGC,
		"gc_new", newGC,
	}
	if p.snapshot != nil {
		snap := p.snapshot()
		fields = append(fields,
			"fps", snap.CurrentFPS,
			"detections", snap.CumulativeDetections,
			"files", snap.FilesProcessed,
		)
	}

	p.log.Infow("runtime profile", fields...)
}

// formatBytes renders byte counts in human-readable form.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
