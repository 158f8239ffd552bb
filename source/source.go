// Package source - normalizes heterogeneous frame inputs (webcam, network
// cameras, image files, folders, video files) into one pull-based contract.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// Sentinel errors returned by Open and Next. Callers match them with
// errors.Is; any other error from Next is a fatal read failure.
var (
	// ErrUnavailable wraps every failure to open a source.
	ErrUnavailable = errors.New("source unavailable")
	// ErrEndOfStream signals natural exhaustion of a bounded source.
	ErrEndOfStream = errors.New("end of stream")
	// ErrTransient signals a recoverable shot-poll fetch or decode failure.
	// The source stays usable; the caller decides when to retry.
	ErrTransient = errors.New("transient fetch failure")
)

// Poll timing bounds for shot-poll sources.
const (
	DefaultPollInterval = 100 * time.Millisecond
	MinPollInterval     = 50 * time.Millisecond
	MaxPollInterval     = 5 * time.Second

	shotFetchTimeout = 5 * time.Second
)

// Kind identifies the variant a Descriptor describes.
type Kind int

const (
	KindWebcam Kind = iota
	KindMJPEG
	KindShotPoll
	KindImageFile
	KindImageFolder
	KindVideoFile
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindWebcam:
		return "webcam"
	case KindMJPEG:
		return "mjpeg"
	case KindShotPoll:
		return "shot-poll"
	case KindImageFile:
		return "image"
	case KindImageFolder:
		return "folder"
	case KindVideoFile:
		return "video"
	}
	return "unknown"
}

// Descriptor selects exactly one source variant and its parameters.
// Build one with the For* constructors rather than by hand so interval
// clamping and defaults apply.
type Descriptor struct {
	Kind         Kind
	Device       int           // webcam device index
	URL          string        // mjpeg stream or shot endpoint
	PollInterval time.Duration // shot-poll cadence
	Path         string        // image, folder, or video path
	Loop         bool          // restart video after the last frame
}

// ForWebcam describes a local capture device by index.
func ForWebcam(device int) Descriptor {
	return Descriptor{Kind: KindWebcam, Device: device}
}

// ForMJPEG describes a continuous MJPEG network stream.
func ForMJPEG(url string) Descriptor {
	return Descriptor{Kind: KindMJPEG, URL: url}
}

// ForShotPoll describes a repeatedly fetched still-image endpoint. A zero
// interval selects the default; out-of-range intervals are clamped to
// [MinPollInterval, MaxPollInterval].
func ForShotPoll(url string, interval time.Duration) Descriptor {
	if interval == 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	if interval > MaxPollInterval {
		interval = MaxPollInterval
	}
	return Descriptor{Kind: KindShotPoll, URL: url, PollInterval: interval}
}

// ForImage describes a single image file.
func ForImage(path string) Descriptor {
	return Descriptor{Kind: KindImageFile, Path: path}
}

// ForFolder describes a directory of images, drained in lexical order.
func ForFolder(path string) Descriptor {
	return Descriptor{Kind: KindImageFolder, Path: path}
}

// ForVideo describes a video file, optionally looping back to the first
// frame on exhaustion.
func ForVideo(path string, loop bool) Descriptor {
	return Descriptor{Kind: KindVideoFile, Path: path, Loop: loop}
}

// StepDelay returns how long the pipeline should wait between steps for
// this source: the poll interval for shot-poll, zero (reschedule
// immediately) for everything else.
func (d Descriptor) StepDelay() time.Duration {
	if d.Kind == KindShotPoll {
		return d.PollInterval
	}
	return 0
}

// Bounded reports whether the source is a finite batch that should be
// drained to completion rather than streamed indefinitely.
func (d Descriptor) Bounded() bool {
	return d.Kind == KindImageFolder
}

// Source is a pull-based producer of frames.
//
// Next returns the next frame or an error: ErrEndOfStream on natural
// exhaustion, ErrTransient for a recoverable fetch failure, anything else
// is fatal for the session. The returned Mat is valid only when the error
// is nil, and ownership passes to the caller, who must Close it.
type Source interface {
	Next() (gocv.Mat, error)
	Close() error
}

// Named is implemented by sources whose frames originate from files and
// can report the file behind the most recent frame.
type Named interface {
	CurrentName() string
}

// Open builds the Source a descriptor selects. Failures wrap
// ErrUnavailable and leave nothing to release.
func Open(desc Descriptor) (Source, error) {
	switch desc.Kind {
	case KindWebcam:
		return openWebcam(desc)
	case KindMJPEG:
		return openMJPEG(desc)
	case KindShotPoll:
		return openShotPoll(desc)
	case KindImageFile:
		return openImageFile(desc)
	case KindImageFolder:
		return openFolder(desc)
	case KindVideoFile:
		return openVideo(desc)
	}
	return nil, fmt.Errorf("%w: unknown source kind %d", ErrUnavailable, desc.Kind)
}

// MJPEGURL builds the conventional stream endpoint for an IP camera.
func MJPEGURL(host string, port int) string {
	return fmt.Sprintf("http://%s:%d/video", host, port)
}

// ShotURL builds the conventional still-image endpoint for an IP camera.
func ShotURL(host string, port int) string {
	return fmt.Sprintf("http://%s:%d/shot.jpg", host, port)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mkv":  true,
	".mov":  true,
	".webm": true,
}

// IsImageFile reports whether the file name carries a recognized image
// extension (case-insensitive).
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsVideoFile reports whether the file name carries a recognized video
// extension (case-insensitive).
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}
