// Package controller - the run/stop state machine that drives frames
// from the active source through detection, annotation, statistics and
// persistence.
package controller

import (
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/detector"
	"github.com/face-lab/go-detect/metrics"
	"github.com/face-lab/go-detect/sink"
	"github.com/face-lab/go-detect/source"
	"github.com/face-lab/go-detect/stats"
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("pipeline already running")

// State is the controller lifecycle state. Stopping is the window
// between a stop request and the loop observing it.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// FileAction selects what happens to annotated frames in image and
// folder modes. Streaming modes always display and never auto-save.
type FileAction int

const (
	// ActionDisplay shows results without writing files.
	ActionDisplay FileAction = iota
	// ActionSave writes detected_* files without displaying.
	ActionSave
	// ActionBoth displays and writes.
	ActionBoth
)

// String returns the action name used in logs and flags.
func (a FileAction) String() string {
	switch a {
	case ActionDisplay:
		return "display"
	case ActionSave:
		return "save"
	case ActionBoth:
		return "both"
	}
	return "unknown"
}

func (a FileAction) saves() bool {
	return a == ActionSave || a == ActionBoth
}

// RunConfig carries the per-session tuning handed to Start. The zero
// value is usable: no persistence, default rendering.
type RunConfig struct {
	// Confidence is the minimum detection confidence, 0.0 to 1.0.
	Confidence float32
	// Tracking assigns stable track IDs across frames.
	Tracking bool
	// BoxThickness is the annotation stroke width.
	BoxThickness int
	// ShowConfidence appends confidences to labels.
	ShowConfidence bool
	// ShowTrackID prefixes labels with track identities and switches
	// box colors to the track palette.
	ShowTrackID bool
	// CropPadding is the context added around each detection crop, px.
	CropPadding int
	// SaveCrops writes a padded crop per detection, in every mode.
	SaveCrops bool
	// OutputDir is where detected_*, screenshot_* and crops/ land.
	OutputDir string
	// Action controls annotated-frame persistence for image and folder
	// sources.
	Action FileAction
}

// Detector is the model capability the pipeline drives.
// *detector.Detector implements it; tests substitute fakes.
type Detector interface {
	Detect(frame gocv.Mat, opts detector.Options) ([]detector.Detection, error)
}

// FrameHook observes each processed frame. The Mat is owned by the
// pipeline and valid only during the call.
type FrameHook func(frame gocv.Mat, dets []detector.Detection, snap stats.Snapshot)

// Options configures a Controller.
type Options struct {
	// Logger receives pipeline logs; nil discards them.
	Logger *zap.SugaredLogger
	// Metrics mirrors counters for scraping; nil creates a private set.
	Metrics *metrics.Metrics
	// Clock drives stats windows and poll waits, for tests.
	Clock clock.Clock
	// OnFrame is called after every processed frame.
	OnFrame FrameHook
	// OpenSource overrides source construction, for tests.
	OpenSource func(source.Descriptor) (source.Source, error)
}

// Controller owns one pipeline. All mutable session state lives here
// and is touched either by the run goroutine or under the mutex.
type Controller struct {
	det     Detector
	log     *zap.SugaredLogger
	mx      *metrics.Metrics
	clk     clock.Clock
	stats   *stats.Aggregator
	onFrame FrameHook
	open    func(source.Descriptor) (source.Source, error)

	state atomic.Int32

	mu      sync.Mutex
	snk     *sink.Sink
	runID   string
	done    chan struct{}
	runErr  error
	last    gocv.Mat
	hasLast bool
}

// New builds a Controller around a loaded detector.
func New(det Detector, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.OpenSource == nil {
		opts.OpenSource = source.Open
	}

	// Done() must never block before the first Start.
	done := make(chan struct{})
	close(done)

	return &Controller{
		det:     det,
		log:     opts.Logger,
		mx:      opts.Metrics,
		clk:     opts.Clock,
		stats:   stats.New(stats.WithClock(opts.Clock), stats.WithMetrics(opts.Metrics)),
		onFrame: opts.OnFrame,
		open:    opts.OpenSource,
		done:    done,
	}
}

// Start opens the described source and begins a session.
//
// It fails with ErrAlreadyRunning unless the controller is idle, and
// propagates source.ErrUnavailable (wrapped) when the source cannot be
// opened, in which case the controller stays idle and holds no
// resources. On success the state is Running, statistics are reset and
// the frame loop runs until exhaustion, a fatal error, or Stop.
func (c *Controller) Start(desc source.Descriptor, cfg RunConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if State(c.state.Load()) != StateIdle {
		return ErrAlreadyRunning
	}

	src, err := c.open(desc)
	if err != nil {
		return errors.Wrapf(err, "starting %s source", desc.Kind)
	}

	c.stats.Reset()
	c.snk = sink.New(cfg.OutputDir, sink.WithClock(c.clk))
	c.runID = uuid.NewString()[:8]
	c.done = make(chan struct{})
	c.runErr = nil
	c.state.Store(int32(StateRunning))
	c.mx.RunsStarted.Add(1)

	c.log.Infow("pipeline started",
		"run_id", c.runID,
		"source", desc.Kind.String(),
		"confidence", cfg.Confidence,
		"tracking", cfg.Tracking,
		"action", cfg.Action.String(),
	)

	go c.run(&session{
		src:  src,
		desc: desc,
		cfg:  cfg,
		snk:  c.snk,
		id:   c.runID,
	})
	return nil
}

// Stop requests the running session to end. The loop observes the
// request at the top of its next step, releases the source and
// transitions to Idle; Done unblocks when that completes. Calling Stop
// while idle or already stopping is a no-op.
func (c *Controller) Stop() {
	if c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		c.log.Infow("stop requested")
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Done returns a channel closed when the current session has fully
// ended. Before any session it is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns the terminal error of the last session, nil after a
// clean stop or natural end of stream.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runErr
}

// Stats returns a snapshot of the session counters.
func (c *Controller) Stats() stats.Snapshot {
	return c.stats.Snapshot()
}

// Screenshot saves the most recent annotated frame and returns its
// path. It works during and after a session, for as long as a frame
// has been processed.
func (c *Controller) Screenshot() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasLast {
		return "", errors.New("no frame captured yet")
	}
	if c.snk == nil {
		return "", errors.New("no output directory configured")
	}
	return c.snk.SaveScreenshot(c.last)
}

// WithLastFrame runs fn with the most recent annotated frame while
// holding it stable, and reports whether a frame was available. fn
// must not retain the Mat.
func (c *Controller) WithLastFrame(fn func(gocv.Mat)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasLast {
		return false
	}
	fn(c.last)
	return true
}

// retain swaps the kept annotated frame, closing the previous one.
func (c *Controller) retain(annotated gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasLast {
		c.last.Close()
	}
	c.last = annotated
	c.hasLast = true
}

// Close releases retained resources. The controller must be idle.
func (c *Controller) Close() error {
	if State(c.state.Load()) != StateIdle {
		return errors.New("controller is not idle")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasLast {
		c.last.Close()
		c.hasLast = false
	}
	return nil
}
