package controller

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/annotate"
	"github.com/face-lab/go-detect/crop"
	"github.com/face-lab/go-detect/detector"
	"github.com/face-lab/go-detect/sink"
	"github.com/face-lab/go-detect/source"
)

// session bundles everything one run owns, so the loop never touches
// controller fields a later Start might replace.
type session struct {
	src  source.Source
	desc source.Descriptor
	cfg  RunConfig
	snk  *sink.Sink
	id   string
}

// counted is implemented by the folder source, which knows its listing
// size and how many entries it skipped as undecodable.
type counted interface {
	Len() int
	Skipped() int
}

// run executes one session to completion and performs the transition
// back to Idle on every exit path.
func (c *Controller) run(s *session) {
	var err error
	if s.desc.Bounded() {
		err = c.drainFolder(s)
	} else {
		err = c.runStream(s)
	}
	c.finish(s, err)
}

// runStream is the unbounded scheduling loop for webcam, network and
// video sources: one step per tick, rescheduled immediately for
// blocking-read sources and after the poll interval for shot-poll. A
// stop request is observed at the top of the next step.
func (c *Controller) runStream(s *session) error {
	named, _ := s.src.(source.Named)
	delay := s.desc.StepDelay()

	for {
		if c.State() != StateRunning {
			return nil
		}

		frame, err := s.src.Next()
		switch {
		case err == nil:
			name := ""
			if named != nil {
				name = named.CurrentName()
			}
			c.processFrame(s, frame, name)
			frame.Close()
		case errors.Is(err, source.ErrEndOfStream):
			c.log.Infow("end of stream", "run_id", s.id)
			return nil
		case errors.Is(err, source.ErrTransient):
			c.log.Warnw("fetch failed, retrying next tick", "run_id", s.id, "error", err)
			c.mx.TransientFetchErrors.Add(1)
		default:
			c.mx.ReadErrors.Add(1)
			return errors.Wrap(err, "reading frame")
		}

		if delay > 0 {
			c.clk.Sleep(delay)
		}
	}
}

// drainFolder is the bounded variant: it iterates the file listing
// back to back without yielding between frames, checks for a stop
// request between files, and ends when the listing is exhausted.
func (c *Controller) drainFolder(s *session) error {
	named, _ := s.src.(source.Named)

	for {
		if c.State() != StateRunning {
			c.log.Infow("folder drain interrupted", "run_id", s.id)
			return nil
		}

		frame, err := s.src.Next()
		if errors.Is(err, source.ErrEndOfStream) {
			fields := []interface{}{"run_id", s.id, "processed", c.stats.Snapshot().FilesProcessed}
			if fc, ok := s.src.(counted); ok {
				fields = append(fields, "listed", fc.Len(), "skipped", fc.Skipped())
			}
			c.log.Infow("folder drained", fields...)
			return nil
		}
		if err != nil {
			c.mx.ReadErrors.Add(1)
			return errors.Wrap(err, "reading folder entry")
		}

		name := ""
		if named != nil {
			name = named.CurrentName()
		}
		c.processFrame(s, frame, name)
		frame.Close()
		c.stats.OnFileProcessed()
	}
}

// processFrame runs one frame through detect, annotate, stats and the
// persistence policy. Inference failures skip the frame and keep the
// session alive.
func (c *Controller) processFrame(s *session, frame gocv.Mat, name string) {
	dets, err := c.det.Detect(frame, detector.Options{
		MinConfidence: s.cfg.Confidence,
		Tracking:      s.cfg.Tracking,
	})
	if err != nil {
		c.log.Warnw("inference failed, frame skipped", "run_id", s.id, "error", err)
		c.mx.InferenceErrors.Add(1)
		return
	}

	annotated := annotate.Render(frame, dets, annotate.Options{
		BoxThickness:   s.cfg.BoxThickness,
		ShowConfidence: s.cfg.ShowConfidence,
		ShowTrackID:    s.cfg.ShowTrackID,
	})

	c.stats.OnFrame(len(dets))
	c.persist(s, frame, annotated, dets, name)

	// The status overlay goes on after persistence so saved files stay
	// clean of it.
	snap := c.stats.Snapshot()
	annotate.StatusLine(&annotated, fmt.Sprintf("FPS: %d | Faces: %d", snap.CurrentFPS, len(dets)))

	if c.onFrame != nil {
		c.onFrame(annotated, dets, snap)
	}
	c.retain(annotated)
}

// persist applies the save policy: crops are cut from the clean frame
// whenever enabled; annotated frames are written only for file-backed
// sources when the action includes saving.
func (c *Controller) persist(s *session, frame, annotated gocv.Mat, dets []detector.Detection, name string) {
	if s.cfg.SaveCrops && len(dets) > 0 {
		crops := crop.Extract(frame, dets, s.cfg.CropPadding)
		if len(crops) > 0 {
			paths, err := s.snk.SaveCrops(crops, stem(name))
			if err != nil {
				c.log.Warnw("saving crops", "run_id", s.id, "error", err)
			}
			c.mx.CropsSaved.Add(uint64(len(paths)))
			crop.CloseAll(crops)
		}
	}

	if name == "" || !s.cfg.Action.saves() {
		return
	}
	path, err := s.snk.SaveAnnotated(annotated, name)
	if err != nil {
		c.log.Warnw("saving annotated frame", "run_id", s.id, "error", err)
		return
	}
	c.mx.FramesSaved.Add(1)
	c.log.Debugw("annotated frame saved", "run_id", s.id, "path", path)
}

// finish releases the source, records the terminal error and completes
// the transition to Idle before unblocking Done.
func (c *Controller) finish(s *session, err error) {
	if cerr := s.src.Close(); cerr != nil {
		c.log.Warnw("closing source", "run_id", s.id, "error", cerr)
	}

	c.mu.Lock()
	c.runErr = err
	done := c.done
	c.mu.Unlock()

	c.state.Store(int32(StateIdle))
	c.mx.RunsCompleted.Add(1)

	snap := c.stats.Snapshot()
	if err != nil {
		c.log.Errorw("pipeline stopped on error",
			"run_id", s.id, "error", err, "detections", snap.CumulativeDetections)
	} else {
		c.log.Infow("pipeline finished",
			"run_id", s.id, "detections", snap.CumulativeDetections, "files", snap.FilesProcessed)
	}
	close(done)
}

// stem strips the directory and extension from a file name, for crop
// prefixes.
func stem(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
