package source

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Requested capture size for local devices. The driver may negotiate a
// different resolution; frames are used at whatever size arrives.
const (
	webcamWidth  = 1280
	webcamHeight = 720
)

// openWebcam opens a local capture device by index.
func openWebcam(desc Descriptor) (Source, error) {
	cap, err := gocv.OpenVideoCapture(desc.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open camera device %d: %v", ErrUnavailable, desc.Device, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: camera device %d did not open", ErrUnavailable, desc.Device)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, webcamWidth)
	cap.Set(gocv.VideoCaptureFrameHeight, webcamHeight)

	return &captureSource{cap: cap, desc: desc}, nil
}
