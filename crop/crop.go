// Package crop - derives padded sub-images for detections.
package crop

import (
	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/detector"
)

// Crop is one extracted detection region. The Mat is an owned copy,
// independent of the frame it was cut from.
type Crop struct {
	Mat        gocv.Mat
	Confidence float32
}

// Extract cuts one padded region per detection out of the frame. Each box
// grows by padding pixels on every side and is clamped to the frame;
// regions that clamp to zero area are skipped without error. Crops are
// cloned so they stay valid after the frame is closed.
//
// Arguments:
//   - frame: The clean frame to cut from.
//   - detections: Boxes to extract.
//   - padding: Pixels of context added around every box, >= 0.
//
// Returns:
//   - []Crop: Owned sub-images with their confidences, in detection order.
func Extract(frame gocv.Mat, detections []detector.Detection, padding int) []Crop {
	if frame.Empty() || len(detections) == 0 {
		return nil
	}

	width := frame.Cols()
	height := frame.Rows()

	crops := make([]Crop, 0, len(detections))
	for _, det := range detections {
		region := det.Box.PadClamp(padding, width, height)
		if region.Empty() {
			continue
		}

		view := frame.Region(region.ToImageRect())
		owned := view.Clone()
		view.Close()

		crops = append(crops, Crop{Mat: owned, Confidence: det.Confidence})
	}
	return crops
}

// CloseAll releases every crop's Mat. Safe on an empty slice.
func CloseAll(crops []Crop) {
	for i := range crops {
		crops[i].Mat.Close()
	}
}
