package annotate

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/detector"
	"github.com/face-lab/go-detect/images"
)

// Label rendering constants, shared so boxes and status text match.
const (
	labelFont      = gocv.FontHersheySimplex
	labelScale     = 0.5
	labelThickness = 1
)

var labelTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Options controls what Render draws.
type Options struct {
	// BoxThickness is the rectangle stroke width; values < 1 become 2.
	BoxThickness int
	// ShowConfidence appends the confidence (two decimals) to the label.
	ShowConfidence bool
	// ShowTrackID prefixes the label with the track identity and switches
	// box coloring to the track palette.
	ShowTrackID bool
}

// Render draws every detection onto a copy of the frame and returns the
// copy. The input frame is never touched; the caller owns the result.
func Render(frame gocv.Mat, detections []detector.Detection, opts Options) gocv.Mat {
	out := frame.Clone()
	if opts.BoxThickness < 1 {
		opts.BoxThickness = 2
	}

	for _, det := range detections {
		boxColor := colorForDetection(det, opts)
		gocv.Rectangle(&out, det.Box.ToImageRect(), boxColor, opts.BoxThickness)

		if label := labelFor(det, opts); label != "" {
			drawLabel(&out, label, det.Box, boxColor)
		}
	}
	return out
}

func colorForDetection(det detector.Detection, opts Options) color.RGBA {
	if opts.ShowTrackID && det.TrackID >= 0 {
		return ColorFor(det.TrackID)
	}
	return DefaultColor
}

// labelFor builds the box label: a track-id prefix when identity display
// is on and an identity exists, then the confidence to two decimals.
func labelFor(det detector.Detection, opts Options) string {
	var parts []string
	if opts.ShowTrackID && det.TrackID >= 0 {
		parts = append(parts, fmt.Sprintf("ID:%d", det.TrackID))
	}
	if opts.ShowConfidence {
		parts = append(parts, fmt.Sprintf("%.2f", det.Confidence))
	}
	return strings.Join(parts, " ")
}

// drawLabel paints an opaque background sized to the text just above the
// box, then the text in white on top. OpenCV clips anything that falls
// outside the frame.
func drawLabel(img *gocv.Mat, text string, box images.Rect, bg color.RGBA) {
	size := gocv.GetTextSize(text, labelFont, labelScale, labelThickness)

	backdrop := image.Rect(box.X1, box.Y1-size.Y-8, box.X1+size.X+4, box.Y1)
	gocv.Rectangle(img, backdrop, bg, -1)
	gocv.PutText(img, text, image.Pt(box.X1+2, box.Y1-4), labelFont, labelScale, labelTextColor, labelThickness)
}

// StatusLine writes a one-line overlay (FPS, counts) in the top-left
// corner. Unlike Render it mutates the frame, so callers pass frames they
// own, typically the annotated copy they are about to display.
func StatusLine(frame *gocv.Mat, text string) {
	gocv.PutText(frame, text, image.Pt(10, 30), labelFont, 0.7, DefaultColor, 2)
}
