package stats

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/face-lab/go-detect/metrics"
)

func TestOnFrameAccumulatesWithinWindow(t *testing.T) {
	clk := clock.NewMock()
	agg := New(WithClock(clk))

	for i := 0; i < 5; i++ {
		clk.Add(100 * time.Millisecond)
		agg.OnFrame(2)
	}

	snap := agg.Snapshot()
	assert.Equal(t, 5, snap.FramesInWindow)
	assert.Equal(t, 10, snap.CumulativeDetections)
	assert.Equal(t, 0, snap.CurrentFPS, "window has not closed yet")
}

func TestFPSWindowRollsAtOneSecond(t *testing.T) {
	clk := clock.NewMock()
	agg := New(WithClock(clk))

	// 9 frames inside the first second, the 10th lands exactly on it.
	for i := 0; i < 9; i++ {
		clk.Add(100 * time.Millisecond)
		agg.OnFrame(0)
	}
	assert.Equal(t, 0, agg.Snapshot().CurrentFPS)

	clk.Add(100 * time.Millisecond)
	agg.OnFrame(0)

	snap := agg.Snapshot()
	assert.Equal(t, 10, snap.CurrentFPS, "rollover frame counts in the closing window")
	assert.Equal(t, 0, snap.FramesInWindow, "window restarts at zero")
	assert.Equal(t, clk.Now(), snap.WindowStart)
}

func TestFPSReflectsEachFullWindow(t *testing.T) {
	clk := clock.NewMock()
	agg := New(WithClock(clk))

	// Fast window: 20 frames across one second.
	for i := 0; i < 20; i++ {
		clk.Add(50 * time.Millisecond)
		agg.OnFrame(1)
	}
	assert.Equal(t, 20, agg.Snapshot().CurrentFPS)

	// Slow window: 4 frames, the last one beyond the second mark.
	for i := 0; i < 3; i++ {
		clk.Add(250 * time.Millisecond)
		agg.OnFrame(1)
	}
	clk.Add(300 * time.Millisecond)
	agg.OnFrame(1)

	snap := agg.Snapshot()
	assert.Equal(t, 4, snap.CurrentFPS)
	assert.Equal(t, 24, snap.CumulativeDetections, "cumulative count survives window rolls")
}

func TestCumulativeDetectionsUnchangedWithoutFrames(t *testing.T) {
	clk := clock.NewMock()
	agg := New(WithClock(clk))

	agg.OnFrame(3)
	before := agg.Snapshot().CumulativeDetections

	// Transient fetch failures never reach OnFrame, so time passing
	// alone must not move the counter.
	clk.Add(5 * time.Second)

	assert.Equal(t, before, agg.Snapshot().CumulativeDetections)
}

func TestOnFileProcessed(t *testing.T) {
	agg := New(WithClock(clock.NewMock()))

	agg.OnFileProcessed()
	agg.OnFileProcessed()
	agg.OnFileProcessed()

	assert.Equal(t, 3, agg.Snapshot().FilesProcessed)
}

func TestResetZeroesEverything(t *testing.T) {
	clk := clock.NewMock()
	agg := New(WithClock(clk))

	for i := 0; i < 15; i++ {
		clk.Add(100 * time.Millisecond)
		agg.OnFrame(2)
	}
	agg.OnFileProcessed()

	clk.Add(250 * time.Millisecond)
	agg.Reset()

	snap := agg.Snapshot()
	assert.Equal(t, 0, snap.FramesInWindow)
	assert.Equal(t, 0, snap.CurrentFPS)
	assert.Equal(t, 0, snap.CumulativeDetections)
	assert.Equal(t, 0, snap.FilesProcessed)
	assert.Equal(t, clk.Now(), snap.WindowStart, "reset reopens the window at now")
}

func TestMetricsMirroring(t *testing.T) {
	clk := clock.NewMock()
	mx := metrics.New()
	agg := New(WithClock(clk), WithMetrics(mx))

	for i := 0; i < 10; i++ {
		clk.Add(100 * time.Millisecond)
		agg.OnFrame(2)
	}
	agg.OnFileProcessed()

	assert.Equal(t, uint64(10), mx.FramesProcessed.Load())
	assert.Equal(t, uint64(20), mx.DetectionsTotal.Load())
	assert.Equal(t, uint64(1), mx.FilesProcessed.Load())
	assert.Equal(t, uint64(10), mx.CurrentFPS.Load())
}
