// Command go-detect runs the face detection pipeline against a webcam,
// an IP camera, an image, a folder of images or a video file, with an
// optional preview window.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/controller"
	"github.com/face-lab/go-detect/detector"
	"github.com/face-lab/go-detect/logging"
	"github.com/face-lab/go-detect/metrics"
	"github.com/face-lab/go-detect/models"
	"github.com/face-lab/go-detect/profiler"
	"github.com/face-lab/go-detect/source"
)

const (
	// DefaultModel is the registry name loaded when -model is not set.
	DefaultModel = "yolov12n-face"
	// DefaultModelsDir is where registry entries resolve their files.
	DefaultModelsDir = "models"
	// DefaultOutputDir receives detected_*, screenshot_* and crops/.
	DefaultOutputDir = "output"
	// windowTitle names the preview window.
	windowTitle = "Face Detection"
)

func main() {
	var (
		mode     string
		camera   int
		rawURL   string
		host     string
		port     int
		interval time.Duration
		input    string
		loop     bool

		modelName    string
		modelsDir    string
		registryPath string
		provider     string
		onnxLib      string

		confidence     float64
		track          bool
		thickness      int
		showConfidence bool
		showTrack      bool
		padding        int
		saveCrops      bool
		action         string
		outputDir      string

		display     bool
		metricsAddr string
		profile     bool
		debug       bool
	)

	flag.StringVar(&mode, "mode", "webcam", "Input mode: webcam, mjpeg, shot, image, folder, video")
	flag.IntVar(&camera, "camera", 0, "Webcam device index")
	flag.StringVar(&rawURL, "url", "", "Full stream or shot URL (overrides -host/-port)")
	flag.StringVar(&host, "host", "192.168.1.100", "IP camera host for the conventional endpoints")
	flag.IntVar(&port, "port", 8080, "IP camera port for the conventional endpoints")
	flag.DurationVar(&interval, "interval", source.DefaultPollInterval, "Shot-poll interval, clamped to 50ms..5s")
	flag.StringVar(&input, "input", "", "Path to the image, folder or video input")
	flag.BoolVar(&loop, "loop", false, "Restart the video from the first frame on exhaustion")

	flag.StringVar(&modelName, "model", DefaultModel, "Registry model name or path to an .onnx file")
	flag.StringVar(&modelsDir, "models-dir", DefaultModelsDir, "Directory holding the registry model files")
	flag.StringVar(&registryPath, "registry", "", "Optional YAML model registry file")
	flag.StringVar(&provider, "provider", "cpu", "Execution provider: cpu, cuda, coreml")
	flag.StringVar(&onnxLib, "onnx-lib", "", "Path to the ONNX Runtime shared library")

	flag.Float64Var(&confidence, "confidence", 0.5, "Minimum detection confidence")
	flag.BoolVar(&track, "track", false, "Assign stable track IDs across frames")
	flag.IntVar(&thickness, "thickness", 2, "Bounding box stroke width")
	flag.BoolVar(&showConfidence, "show-confidence", true, "Render confidence values on labels")
	flag.BoolVar(&showTrack, "show-track", false, "Render track IDs and use per-track colors")
	flag.IntVar(&padding, "padding", 10, "Pixels of context around saved crops")
	flag.BoolVar(&saveCrops, "save-crops", false, "Save a padded crop per detection")
	flag.StringVar(&action, "action", "display", "File handling for image/folder modes: display, save, both")
	flag.StringVar(&outputDir, "output", DefaultOutputDir, "Output directory")

	flag.BoolVar(&display, "display", true, "Show the preview window (q quits, s saves a screenshot)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9091")
	flag.BoolVar(&profile, "profile", false, "Log periodic runtime health reports")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logger, err := logging.New(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	desc, err := buildDescriptor(mode, camera, rawURL, host, port, interval, input, loop)
	if err != nil {
		logger.Fatalw("invalid input configuration", "error", err)
	}

	fileAction, err := parseAction(action)
	if err != nil {
		logger.Fatalw("invalid -action", "error", err)
	}

	modelPath, entry, err := resolveModel(registryPath, modelsDir, modelName)
	if err != nil {
		logger.Fatalw("model lookup failed", "error", err)
	}

	det, err := detector.Load(detector.Config{
		ModelPath:   modelPath,
		Classes:     entry.Classes,
		InputSize:   entry.InputSize,
		Provider:    detector.Provider(strings.ToLower(provider)),
		LibraryPath: onnxLib,
	}, logger)
	if err != nil {
		logger.Fatalw("model load failed", "model", modelPath, "error", err)
	}
	defer det.Close()

	if err := det.Warmup(); err != nil {
		logger.Warnw("warmup inference failed", "error", err)
	}

	mx := metrics.New()
	if metricsAddr != "" {
		go func() {
			logger.Infow("metrics listening", "addr", metricsAddr)
			if err := mx.Serve(metricsAddr); err != nil {
				logger.Errorw("metrics server stopped", "error", err)
			}
		}()
	}

	ctrl := controller.New(det, controller.Options{Logger: logger, Metrics: mx})

	if profile {
		prof := profiler.New(logger, ctrl.Stats)
		prof.Start()
		defer prof.Stop()
	}

	cfg := controller.RunConfig{
		Confidence:     float32(confidence),
		Tracking:       track,
		BoxThickness:   thickness,
		ShowConfidence: showConfidence,
		ShowTrackID:    showTrack,
		CropPadding:    padding,
		SaveCrops:      saveCrops,
		OutputDir:      outputDir,
		Action:         fileAction,
	}

	if err := ctrl.Start(desc, cfg); err != nil {
		logger.Fatalw("could not start pipeline", "source", desc.Kind.String(), "error", err)
	}

	if display {
		runWindow(ctrl, logger)
	} else {
		waitHeadless(ctrl, logger)
	}

	snap := ctrl.Stats()
	logger.Infow("session summary",
		"detections", snap.CumulativeDetections,
		"files_processed", snap.FilesProcessed,
		"last_fps", snap.CurrentFPS,
	)

	runErr := ctrl.Err()
	if runErr != nil {
		logger.Errorw("session ended with error", "error", runErr)
	}
	_ = ctrl.Close()
	_ = det.Close()
	if runErr != nil {
		os.Exit(1)
	}
}

// runWindow pumps the preview window until the user quits or the
// pipeline ends on its own. q or ESC quits, s saves a screenshot.
func runWindow(ctrl *controller.Controller, logger *zap.SugaredLogger) {
	window := gocv.NewWindow(windowTitle)
	defer window.Close()

	logger.Infow("preview open", "quit", "q", "screenshot", "s")

	for {
		select {
		case <-ctrl.Done():
			ctrl.WithLastFrame(func(frame gocv.Mat) {
				window.IMShow(frame)
			})
			window.WaitKey(500)
			return
		default:
		}

		ctrl.WithLastFrame(func(frame gocv.Mat) {
			window.IMShow(frame)
		})

		switch window.WaitKey(15) {
		case 'q', 27:
			ctrl.Stop()
			<-ctrl.Done()
			return
		case 's':
			path, err := ctrl.Screenshot()
			if err != nil {
				logger.Warnw("screenshot failed", "error", err)
				continue
			}
			logger.Infow("screenshot saved", "path", path)
		}
	}
}

// waitHeadless blocks until the pipeline ends or a signal asks for a
// graceful stop.
func waitHeadless(ctrl *controller.Controller, logger *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-ctrl.Done():
	case sig := <-sigs:
		logger.Infow("signal received, stopping", "signal", sig.String())
		ctrl.Stop()
		<-ctrl.Done()
	}
}

// buildDescriptor validates the mode flags and produces the source
// selection handed to the controller.
func buildDescriptor(mode string, camera int, rawURL, host string, port int, interval time.Duration, input string, loop bool) (source.Descriptor, error) {
	switch mode {
	case "webcam":
		return source.ForWebcam(camera), nil

	case "mjpeg":
		u := rawURL
		if u == "" {
			u = source.MJPEGURL(host, port)
		}
		return source.ForMJPEG(u), nil

	case "shot":
		u := rawURL
		if u == "" {
			u = source.ShotURL(host, port)
		}
		return source.ForShotPoll(u, interval), nil

	case "image":
		if input == "" {
			return source.Descriptor{}, errors.New("-input is required in image mode")
		}
		if !source.IsImageFile(input) {
			return source.Descriptor{}, errors.Errorf("unsupported image extension %q", filepath.Ext(input))
		}
		return source.ForImage(input), nil

	case "folder":
		if input == "" {
			return source.Descriptor{}, errors.New("-input is required in folder mode")
		}
		return source.ForFolder(input), nil

	case "video":
		if input == "" {
			return source.Descriptor{}, errors.New("-input is required in video mode")
		}
		if !source.IsVideoFile(input) {
			return source.Descriptor{}, errors.Errorf("unsupported video extension %q", filepath.Ext(input))
		}
		return source.ForVideo(input, loop), nil
	}
	return source.Descriptor{}, errors.Errorf("unknown mode %q (want webcam, mjpeg, shot, image, folder or video)", mode)
}

// parseAction maps the -action flag onto the controller's file policy.
func parseAction(s string) (controller.FileAction, error) {
	switch strings.ToLower(s) {
	case "display":
		return controller.ActionDisplay, nil
	case "save":
		return controller.ActionSave, nil
	case "both":
		return controller.ActionBoth, nil
	}
	return controller.ActionDisplay, errors.Errorf("unknown action %q (want display, save or both)", s)
}

// resolveModel turns the -model flag into a loadable path, through the
// YAML registry when one is supplied.
func resolveModel(registryPath, modelsDir, name string) (string, models.Entry, error) {
	var reg *models.Registry
	if registryPath != "" {
		var err error
		reg, err = models.Load(registryPath)
		if err != nil {
			return "", models.Entry{}, err
		}
	} else {
		reg = models.New(modelsDir)
	}
	return reg.Resolve(name)
}
