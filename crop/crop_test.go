package crop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/detector"
	"github.com/face-lab/go-detect/images"
)

func newFrame(rows, cols int, value float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func TestExtractPadsAndClampsAtFrameEdge(t *testing.T) {
	frame := newFrame(200, 200, 128)
	defer frame.Close()

	dets := []detector.Detection{
		{Box: images.Rect{X1: 5, Y1: 5, X2: 20, Y2: 20}, Confidence: 0.82},
	}

	crops := Extract(frame, dets, 10)
	defer CloseAll(crops)

	require.Len(t, crops, 1)
	// (5,5,20,20) padded by 10 clamps to (0,0,30,30): a 30x30 crop.
	assert.Equal(t, 30, crops[0].Mat.Cols())
	assert.Equal(t, 30, crops[0].Mat.Rows())
	assert.InDelta(t, 0.82, float64(crops[0].Confidence), 1e-6)
}

func TestExtractZeroPaddingKeepsBoxSize(t *testing.T) {
	frame := newFrame(100, 100, 50)
	defer frame.Close()

	dets := []detector.Detection{
		{Box: images.Rect{X1: 10, Y1: 20, X2: 40, Y2: 60}, Confidence: 0.9},
	}

	crops := Extract(frame, dets, 0)
	defer CloseAll(crops)

	require.Len(t, crops, 1)
	assert.Equal(t, 30, crops[0].Mat.Cols())
	assert.Equal(t, 40, crops[0].Mat.Rows())
}

func TestExtractSkipsZeroAreaRegions(t *testing.T) {
	frame := newFrame(100, 100, 50)
	defer frame.Close()

	dets := []detector.Detection{
		{Box: images.Rect{X1: 150, Y1: 150, X2: 170, Y2: 170}, Confidence: 0.9},
		{Box: images.Rect{X1: 10, Y1: 10, X2: 30, Y2: 30}, Confidence: 0.8},
	}

	crops := Extract(frame, dets, 5)
	defer CloseAll(crops)

	require.Len(t, crops, 1, "out-of-frame region yields no crop")
	assert.InDelta(t, 0.8, float64(crops[0].Confidence), 1e-6)
}

func TestExtractHugePaddingCapsAtFrame(t *testing.T) {
	frame := newFrame(90, 120, 50)
	defer frame.Close()

	dets := []detector.Detection{
		{Box: images.Rect{X1: 40, Y1: 40, X2: 60, Y2: 60}, Confidence: 0.9},
	}

	crops := Extract(frame, dets, 100000)
	defer CloseAll(crops)

	require.Len(t, crops, 1)
	assert.Equal(t, 120, crops[0].Mat.Cols(), "crop is never wider than the frame")
	assert.Equal(t, 90, crops[0].Mat.Rows(), "crop is never taller than the frame")
}

func TestExtractCropsOutliveTheFrame(t *testing.T) {
	frame := newFrame(50, 50, 200)

	dets := []detector.Detection{
		{Box: images.Rect{X1: 10, Y1: 10, X2: 30, Y2: 30}, Confidence: 0.9},
	}
	crops := Extract(frame, dets, 0)
	frame.Close()
	defer CloseAll(crops)

	require.Len(t, crops, 1)
	mean := crops[0].Mat.Mean()
	assert.InDelta(t, 200, mean.Val1, 1, "crop keeps its pixels after the frame is released")
}

func TestExtractEmptyInputs(t *testing.T) {
	frame := newFrame(50, 50, 10)
	defer frame.Close()
	assert.Nil(t, Extract(frame, nil, 5))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Nil(t, Extract(empty, []detector.Detection{{Box: images.Rect{X1: 0, Y1: 0, X2: 5, Y2: 5}}}, 5))
}
