package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/face-lab/go-detect/stats"
)

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core).Sugar(), logs
}

// TestReportIncludesPipelineSnapshot verifies a report carries both the
// runtime fields and the throughput read from the snapshot source.
func TestReportIncludesPipelineSnapshot(t *testing.T) {
	log, logs := observedLogger()
	p := New(log, func() stats.Snapshot {
		return stats.Snapshot{CurrentFPS: 24, CumulativeDetections: 96, FilesProcessed: 3}
	})

	p.report()

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "runtime profile", entry.Message)

	ctx := entry.ContextMap()
	assert.EqualValues(t, 24, ctx["fps"])
	assert.EqualValues(t, 96, ctx["detections"])
	assert.EqualValues(t, 3, ctx["files"])
	assert.Contains(t, ctx, "goroutines")
	assert.Contains(t, ctx, "heap_alloc")
	assert.Contains(t, ctx, "gc_cycles")
}

// TestReportWithoutSnapshotSource verifies the profiler still reports
// runtime health when no pipeline is attached.
func TestReportWithoutSnapshotSource(t *testing.T) {
	log, logs := observedLogger()
	p := New(log, nil)

	p.report()

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.NotContains(t, ctx, "fps")
	assert.Contains(t, ctx, "goroutines")
}

// TestStartEmitsPeriodicReports verifies the background loop ticks and
// that Stop shuts it down.
func TestStartEmitsPeriodicReports(t *testing.T) {
	log, logs := observedLogger()
	p := New(log, nil, WithInterval(5*time.Millisecond))

	p.Start()
	require.Eventually(t, func() bool { return logs.Len() >= 2 },
		2*time.Second, time.Millisecond)
	p.Stop()

	seen := logs.Len()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, seen, logs.Len(), "reports after Stop")
}

// TestStartStopAreIdempotent verifies repeated lifecycle calls are safe.
func TestStartStopAreIdempotent(t *testing.T) {
	p := New(zap.NewNop().Sugar(), nil, WithInterval(time.Hour))

	p.Stop()
	p.Start()
	p.Start()
	p.Stop()
	p.Stop()
}

// TestFormatBytes verifies human-readable byte rendering.
func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "2.5 MB", formatBytes(2621440))
	assert.Equal(t, "1.0 GB", formatBytes(1<<30))
}
