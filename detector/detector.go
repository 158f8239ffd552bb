package detector

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/face-lab/go-detect/images"
)

// Detection is one model-reported box in frame coordinates.
type Detection struct {
	Box        images.Rect
	Confidence float32
	ClassID    int
	// TrackID is -1 unless tracking assigned a persistent identity.
	TrackID int
}

// Detector wraps an ONNX Runtime session behind a load/detect/close
// lifecycle. A Detector serves one inference at a time; calls are
// serialized internally.
type Detector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	classes      []string
	inputSize    int
	nmsThreshold float32
	tracker      *tracker
	log          *zap.SugaredLogger
}

// The runtime environment is process-global and initialized once.
var ortRuntime struct {
	sync.Mutex
	ready bool
}

func initRuntime(libPath string) error {
	ortRuntime.Lock()
	defer ortRuntime.Unlock()
	if ortRuntime.ready {
		return nil
	}

	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime shared library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize onnxruntime environment")
	}

	ortRuntime.ready = true
	return nil
}

// Load builds a Detector from cfg. Every failure here is a model-load
// error: no detection is possible and the caller should not start a run.
//
// Arguments:
//   - cfg: Model path, class list, and runtime tuning.
//   - logger: Sugared logger; nil disables detector logging.
//
// Returns:
//   - *Detector: Ready-to-use detector on success.
//   - error: What failed (missing model, runtime init, session build).
func Load(cfg Config, logger *zap.SugaredLogger) (*Detector, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg = cfg.withDefaults()

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file %s", cfg.ModelPath)
	}
	if err := initRuntime(cfg.sharedLibraryPath()); err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}

	features := int64(4 + len(cfg.Classes))
	outputShape := ort.NewShape(1, features, int64(anchorCount(cfg.InputSize)))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(4)
	options.SetInterOpNumThreads(2)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	if err := applyProvider(options, cfg.Provider); err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrapf(err, "create session for %s", cfg.ModelPath)
	}

	logger.Infow("model loaded",
		"model", cfg.ModelPath,
		"classes", len(cfg.Classes),
		"input_size", cfg.InputSize,
		"provider", cfg.Provider,
	)

	return &Detector{
		session:      session,
		input:        inputTensor,
		output:       outputTensor,
		classes:      cfg.Classes,
		inputSize:    cfg.InputSize,
		nmsThreshold: cfg.NMSThreshold,
		tracker:      newTracker(),
		log:          logger,
	}, nil
}

func applyProvider(options *ort.SessionOptions, provider Provider) error {
	switch provider {
	case ProviderCPU, "":
		return nil
	case ProviderCoreML:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return errors.Wrap(err, "enable CoreML execution provider")
		}
		return nil
	case ProviderCUDA:
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "create CUDA provider options")
		}
		defer cudaOptions.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return errors.Wrap(err, "enable CUDA execution provider")
		}
		return nil
	}
	return errors.Errorf("unknown execution provider %q", provider)
}

// Detect runs one inference over the frame and returns detections at or
// above opts.MinConfidence, in the order the NMS pass produced them.
// Errors are per-frame: the detector stays usable and the caller should
// skip the frame and continue.
func (d *Detector) Detect(frame gocv.Mat, opts Options) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.New("detector is closed")
	}
	if frame.Empty() {
		return nil, errors.New("cannot run inference on an empty frame")
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert frame for inference")
	}
	if err := prepareInput(img, d.input, d.inputSize); err != nil {
		return nil, err
	}
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run inference")
	}

	detections := decodeOutputs(
		d.output.GetData(),
		len(d.classes),
		d.inputSize,
		frame.Cols(),
		frame.Rows(),
		opts.MinConfidence,
		d.nmsThreshold,
	)

	if opts.Tracking {
		d.tracker.assign(detections)
	}

	return detections, nil
}

// Warmup pays one-time graph initialization costs by running inference on
// a zeroed input, so the first real frame is not slowed down.
func (d *Detector) Warmup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return errors.New("detector is closed")
	}
	data := d.input.GetData()
	for i := range data {
		data[i] = 0
	}
	return errors.Wrap(d.session.Run(), "warmup inference")
}

// ClassName resolves a class ID to its configured name.
func (d *Detector) ClassName(id int) string {
	if id < 0 || id >= len(d.classes) {
		return "unknown"
	}
	return d.classes[id]
}

// Close releases the session and its tensors. Safe to call twice.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	return nil
}
