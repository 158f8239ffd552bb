package source

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// videoSource decodes sequential frames from a video file. When loop is
// set, exhaustion rewinds to the first frame instead of ending the
// stream; a failed read directly after a rewind still ends it, so a
// truncated or single-pass-only container cannot spin forever.
type videoSource struct {
	cap  *gocv.VideoCapture
	loop bool
}

func openVideo(desc Descriptor) (Source, error) {
	if _, err := os.Stat(desc.Path); err != nil {
		return nil, fmt.Errorf("%w: video %s: %v", ErrUnavailable, desc.Path, err)
	}

	cap, err := gocv.VideoCaptureFile(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open video %s: %v", ErrUnavailable, desc.Path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: video %s did not open", ErrUnavailable, desc.Path)
	}

	return &videoSource{cap: cap, loop: desc.Loop}, nil
}

// Next returns the next decoded frame, rewinding once on exhaustion when
// looping is enabled.
func (s *videoSource) Next() (gocv.Mat, error) {
	img := gocv.NewMat()
	if ok := s.cap.Read(&img); ok && !img.Empty() {
		return img, nil
	}

	if s.loop {
		s.cap.Set(gocv.VideoCapturePosFrames, 0)
		if ok := s.cap.Read(&img); ok && !img.Empty() {
			return img, nil
		}
	}

	img.Close()
	return gocv.Mat{}, ErrEndOfStream
}

// Close releases the underlying capture.
func (s *videoSource) Close() error {
	return s.cap.Close()
}
