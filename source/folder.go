package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gocv.io/x/gocv"
)

// folderSource drains a directory of images in lexical order. Files that
// fail to decode are skipped and counted, never fatal; the source signals
// end of stream after the last readable file.
type folderSource struct {
	dir     string
	files   []string
	pos     int
	skipped int
	current string
}

func openFolder(desc Descriptor) (Source, error) {
	entries, err := os.ReadDir(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, desc.Path, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsImageFile(entry.Name()) {
			files = append(files, filepath.Join(desc.Path, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no image files in %s", ErrUnavailable, desc.Path)
	}

	return &folderSource{dir: desc.Path, files: files}, nil
}

// Next decodes the next readable file in the listing.
func (s *folderSource) Next() (gocv.Mat, error) {
	for s.pos < len(s.files) {
		path := s.files[s.pos]
		s.pos++

		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			s.skipped++
			continue
		}

		s.current = filepath.Base(path)
		return img, nil
	}
	return gocv.Mat{}, ErrEndOfStream
}

// CurrentName returns the basename of the file behind the last frame.
func (s *folderSource) CurrentName() string {
	return s.current
}

// Len returns the number of candidate files found at open time.
func (s *folderSource) Len() int {
	return len(s.files)
}

// Skipped returns how many files failed to decode so far.
func (s *folderSource) Skipped() int {
	return s.skipped
}

// Close is a no-op; frames are owned by the caller once yielded.
func (s *folderSource) Close() error {
	return nil
}
