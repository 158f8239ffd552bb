package source

import (
	"fmt"

	"gocv.io/x/gocv"
)

// openMJPEG opens a continuous MJPEG network stream. A connection failure
// here is fatal and reported immediately; there is no retry at open time.
func openMJPEG(desc Descriptor) (Source, error) {
	if desc.URL == "" {
		return nil, fmt.Errorf("%w: mjpeg source needs a URL", ErrUnavailable)
	}

	cap, err := gocv.OpenVideoCapture(desc.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot connect to stream %s: %v", ErrUnavailable, desc.URL, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: stream %s did not open", ErrUnavailable, desc.URL)
	}

	return &captureSource{cap: cap, desc: desc}, nil
}
