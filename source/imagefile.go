package source

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// imageFileSource yields a single decoded image once, then signals end of
// stream. The image is decoded eagerly so an unreadable file fails the
// open, not the first step.
type imageFileSource struct {
	frame    gocv.Mat
	name     string
	consumed bool
}

func openImageFile(desc Descriptor) (Source, error) {
	if _, err := os.Stat(desc.Path); err != nil {
		return nil, fmt.Errorf("%w: image %s: %v", ErrUnavailable, desc.Path, err)
	}

	img := gocv.IMRead(desc.Path, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("%w: cannot decode image %s", ErrUnavailable, desc.Path)
	}

	return &imageFileSource{frame: img, name: filepath.Base(desc.Path)}, nil
}

// Next hands the decoded frame to the caller exactly once.
func (s *imageFileSource) Next() (gocv.Mat, error) {
	if s.consumed {
		return gocv.Mat{}, ErrEndOfStream
	}
	s.consumed = true
	out := s.frame
	s.frame = gocv.Mat{}
	return out, nil
}

// CurrentName returns the basename of the backing file.
func (s *imageFileSource) CurrentName() string {
	return s.name
}

// Close releases the decoded frame when it was never handed out.
func (s *imageFileSource) Close() error {
	if !s.consumed {
		s.consumed = true
		return s.frame.Close()
	}
	return nil
}
