package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// writeTestVideo writes a short MJPG clip whose frames have strictly
// increasing brightness, so tests can tell frame positions apart. Skips
// the calling test when no video encoder is available in this build.
func writeTestVideo(t *testing.T, path string, frames int) {
	t.Helper()

	writer, err := gocv.VideoWriterFile(path, "MJPG", 10, 64, 48, true)
	if err != nil || !writer.IsOpened() {
		if writer != nil {
			writer.Close()
		}
		t.Skip("video encoder not available in this OpenCV build")
	}
	defer writer.Close()

	for i := 0; i < frames; i++ {
		value := float64(20 + i*40)
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), 48, 64, gocv.MatTypeCV8UC3)
		require.NoError(t, writer.Write(mat))
		mat.Close()
	}
}

func meanIntensity(m gocv.Mat) float64 {
	mean := m.Mean()
	return (mean.Val1 + mean.Val2 + mean.Val3) / 3
}

func TestVideoSourceEndsWithoutLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")
	writeTestVideo(t, path, 4)

	src, err := Open(ForVideo(path, false))
	require.NoError(t, err)
	defer src.Close()

	read := 0
	for {
		frame, err := src.Next()
		if err != nil {
			assert.ErrorIs(t, err, ErrEndOfStream)
			break
		}
		read++
		frame.Close()
	}
	assert.Equal(t, 4, read)

	_, err = src.Next()
	assert.ErrorIs(t, err, ErrEndOfStream, "exhausted non-looping video stays ended")
}

func TestVideoSourceLoopsBackToFirstFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")
	writeTestVideo(t, path, 3)

	src, err := Open(ForVideo(path, true))
	require.NoError(t, err)
	defer src.Close()

	first, err := src.Next()
	require.NoError(t, err)
	firstMean := meanIntensity(first)
	first.Close()

	// Drain the remaining frames of the first pass.
	for i := 0; i < 2; i++ {
		frame, err := src.Next()
		require.NoError(t, err)
		frame.Close()
	}

	// The very next read must wrap around to the first frame.
	wrapped, err := src.Next()
	require.NoError(t, err)
	defer wrapped.Close()
	assert.InDelta(t, firstMean, meanIntensity(wrapped), 16, "loop should restart at the first frame")
}
