package detector

import (
	"sort"

	"github.com/chewxy/math32"

	"github.com/face-lab/go-detect/images"
)

// decodeOutputs turns the raw model output into frame-space detections.
//
// The output layout is [1, 4+numClasses, anchors]: the first four feature
// rows are box center x/y and width/height in input coordinates, the rest
// are per-class scores. Each anchor contributes its best-scoring class;
// candidates below minConfidence are dropped, survivors are scaled back
// to the frame, clamped to its bounds, and filtered through greedy NMS.
func decodeOutputs(raw []float32, numClasses, inputSize, frameW, frameH int, minConfidence, nmsThreshold float32) []Detection {
	anchors := anchorCount(inputSize)
	if anchors == 0 || len(raw) < (4+numClasses)*anchors {
		return nil
	}

	scaleX := float32(frameW) / float32(inputSize)
	scaleY := float32(frameH) / float32(inputSize)

	candidates := make([]Detection, 0, 64)
	for a := 0; a < anchors; a++ {
		classID := 0
		score := raw[4*anchors+a]
		for c := 1; c < numClasses; c++ {
			if s := raw[(4+c)*anchors+a]; s > score {
				score = s
				classID = c
			}
		}
		if score < minConfidence {
			continue
		}

		cx := raw[0*anchors+a]
		cy := raw[1*anchors+a]
		w := raw[2*anchors+a]
		h := raw[3*anchors+a]

		box := images.Rect{
			X1: int(math32.Round((cx - w/2) * scaleX)),
			Y1: int(math32.Round((cy - h/2) * scaleY)),
			X2: int(math32.Round((cx + w/2) * scaleX)),
			Y2: int(math32.Round((cy + h/2) * scaleY)),
		}.Clamp(frameW, frameH)
		if box.Empty() {
			continue
		}

		candidates = append(candidates, Detection{
			Box:        box,
			Confidence: score,
			ClassID:    classID,
			TrackID:    -1,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return greedyNMS(candidates, nmsThreshold)
}

// greedyNMS performs standard greedy Non-Maximum Suppression over
// detections sorted by descending confidence.
//
// Arguments:
//   - detections: Candidates, highest score first.
//   - iouThreshold: IoU above which an overlapping box is suppressed.
//
// Returns:
//   - Filtered detections, still in descending-confidence order.
func greedyNMS(detections []Detection, iouThreshold float32) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	filtered := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if images.CalculateIoU(anchor.Box, detections[j].Box) > iouThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
