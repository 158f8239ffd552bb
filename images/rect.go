// Package images - shared raster geometry for detections and crops.
package images

import "image"

// Rect is a lightweight pixel-space bounding box.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() int { return r.X2 - r.X1 }

// Height returns the vertical extent of the box.
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether the box covers no pixels.
func (r Rect) Empty() bool { return r.X2 <= r.X1 || r.Y2 <= r.Y1 }

// ToImageRect converts to the stdlib rectangle used by gocv draw calls.
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Clamp constrains the box to a width x height frame. The result may be
// empty when the box lies entirely outside the frame.
func (r Rect) Clamp(width, height int) Rect {
	return Rect{
		X1: max(0, min(r.X1, width)),
		Y1: max(0, min(r.Y1, height)),
		X2: max(0, min(r.X2, width)),
		Y2: max(0, min(r.Y2, height)),
	}
}

// PadClamp expands the box by padding pixels on every side and clamps the
// result to the frame bounds. Padding must be >= 0; negative values are
// treated as zero so callers cannot shrink boxes through this path.
//
// Arguments:
//   - padding: Pixels added to every side before clamping.
//   - width, height: Frame dimensions the result is constrained to.
//
// Returns:
//   - Rect: The padded box, clamped to [0,width) x [0,height).
func (r Rect) PadClamp(padding, width, height int) Rect {
	if padding < 0 {
		padding = 0
	}
	padded := Rect{
		X1: r.X1 - padding,
		Y1: r.Y1 - padding,
		X2: r.X2 + padding,
		Y2: r.Y2 + padding,
	}
	return padded.Clamp(width, height)
}

// CalculateIoU computes the Intersection over Union of two boxes.
//
// IoU = intersection area / union area, in [0, 1]. Non-overlapping boxes
// score 0; identical boxes score 1. Used for NMS suppression and for
// matching detections to existing tracks.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: The IoU score between 0.0 and 1.0.
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Inclusion-exclusion: Union(A, B) = Area(A) + Area(B) - Intersection(A, B).
	areaR := (r.X2 - r.X1) * (r.Y2 - r.Y1)
	areaO := (o.X2 - o.X1) * (o.Y2 - o.Y1)
	unionArea := areaR + areaO - interArea

	return float32(interArea) / float32(unionArea)
}
