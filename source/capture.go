package source

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// captureSource adapts a gocv.VideoCapture (device or network stream) to
// the Source contract with blocking-read semantics.
type captureSource struct {
	cap  *gocv.VideoCapture
	desc Descriptor
}

// Next blocks until the capture produces a frame. Empty grabs are re-read
// (devices can deliver a few while warming up); a failed read means the
// capture stopped producing and is fatal for the session.
func (s *captureSource) Next() (gocv.Mat, error) {
	img := gocv.NewMat()
	for {
		if ok := s.cap.Read(&img); !ok {
			img.Close()
			return gocv.Mat{}, errors.Errorf("%s stopped producing frames", s.desc.Kind)
		}
		if !img.Empty() {
			return img, nil
		}
	}
}

// Close releases the underlying capture.
func (s *captureSource) Close() error {
	return s.cap.Close()
}
