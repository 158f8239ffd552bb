// Package sink persists annotated frames, screenshots and detection
// crops under a configured output directory.
package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/crop"
)

// timestampLayout gives second resolution, which together with the
// per-call crop index makes generated names collision-free.
const timestampLayout = "20060102_150405"

const cropsSubdir = "crops"

// Sink writes pipeline outputs beneath a single base directory,
// creating it (and the crops subdirectory) on demand.
type Sink struct {
	dir string
	clk clock.Clock
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock substitutes the wall clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Sink) { s.clk = clk }
}

// New creates a Sink rooted at dir. The directory is created lazily on
// the first save, not here, so constructing a Sink for a display-only
// run never touches the file system.
func New(dir string, opts ...Option) *Sink {
	s := &Sink{dir: dir, clk: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the configured base directory.
func (s *Sink) Dir() string {
	return s.dir
}

// SaveAnnotated writes an annotated frame as detected_{originalName}.
// Within one run original names are unique, so no further
// disambiguation is applied.
//
// Arguments:
//   - frame: the annotated frame to encode.
//   - originalName: base name of the source file; any directory part
//     is stripped.
//
// Returns: the path written, or an error.
func (s *Sink) SaveAnnotated(frame gocv.Mat, originalName string) (string, error) {
	if err := s.ensureDir(s.dir); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "detected_"+filepath.Base(originalName))
	if ok := gocv.IMWrite(path, frame); !ok {
		return "", errors.Errorf("sink: failed to encode %s", path)
	}
	return path, nil
}

// SaveScreenshot writes a manual capture as screenshot_{timestamp}.png.
func (s *Sink) SaveScreenshot(frame gocv.Mat) (string, error) {
	if err := s.ensureDir(s.dir); err != nil {
		return "", err
	}

	name := fmt.Sprintf("screenshot_%s.png", s.clk.Now().Format(timestampLayout))
	path := filepath.Join(s.dir, name)
	if ok := gocv.IMWrite(path, frame); !ok {
		return "", errors.Errorf("sink: failed to encode %s", path)
	}
	return path, nil
}

// SaveCrops writes each crop as
// crops/{prefix_}face_{timestamp}_{index}_{confidence:.2f}.png. The
// index is the position within this call, so one call never collides
// with itself and the timestamp separates calls a second apart.
//
// Arguments:
//   - crops: extracted sub-images with their confidences.
//   - prefix: optional name prefix, typically the source file stem;
//     empty means no prefix.
//
// Returns: the paths written, in input order.
func (s *Sink) SaveCrops(crops []crop.Crop, prefix string) ([]string, error) {
	if len(crops) == 0 {
		return nil, nil
	}

	dir := filepath.Join(s.dir, cropsSubdir)
	if err := s.ensureDir(dir); err != nil {
		return nil, err
	}

	if prefix != "" {
		prefix += "_"
	}
	ts := s.clk.Now().Format(timestampLayout)

	paths := make([]string, 0, len(crops))
	for i, c := range crops {
		name := fmt.Sprintf("%sface_%s_%d_%.2f.png", prefix, ts, i, c.Confidence)
		path := filepath.Join(dir, name)
		if ok := gocv.IMWrite(path, c.Mat); !ok {
			return paths, errors.Errorf("sink: failed to encode %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Sink) ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "sink: creating %s", dir)
	}
	return nil
}
