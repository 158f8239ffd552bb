// Package detector - ONNX-backed object detection with optional
// cross-frame tracking.
package detector

import (
	"os"
	"runtime"
)

// Provider selects the ONNX Runtime execution provider.
type Provider string

const (
	ProviderCPU    Provider = "cpu"
	ProviderCUDA   Provider = "cuda"
	ProviderCoreML Provider = "coreml"
)

// Config describes how a detector is built.
type Config struct {
	// ModelPath points at the ONNX model file.
	ModelPath string
	// Classes are the model's class names in output order. Defaults to a
	// single "face" class.
	Classes []string
	// InputSize is the square side of the model input. Defaults to 640.
	InputSize int
	// NMSThreshold is the IoU above which overlapping boxes are
	// suppressed. Defaults to 0.45.
	NMSThreshold float32
	// Provider picks the execution provider. Defaults to CPU.
	Provider Provider
	// LibraryPath overrides the ONNX Runtime shared library location.
	// Falls back to ONNXRUNTIME_SHARED_LIBRARY_PATH, then to the
	// platform default under third_party/.
	LibraryPath string
}

// Options tunes a single Detect call.
type Options struct {
	// MinConfidence filters detections before they are returned.
	MinConfidence float32
	// Tracking assigns stable track IDs across successive calls.
	Tracking bool
}

func (c Config) withDefaults() Config {
	if len(c.Classes) == 0 {
		c.Classes = []string{"face"}
	}
	if c.InputSize == 0 {
		c.InputSize = 640
	}
	if c.NMSThreshold == 0 {
		c.NMSThreshold = 0.45
	}
	if c.Provider == "" {
		c.Provider = ProviderCPU
	}
	return c
}

// sharedLibraryPath resolves the ONNX Runtime library for this build,
// preferring the explicit config, then the environment, then the
// platform-specific file under third_party/.
func (c Config) sharedLibraryPath() string {
	if c.LibraryPath != "" {
		return c.LibraryPath
	}
	if env := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); env != "" {
		return env
	}
	if runtime.GOOS == "windows" {
		return "third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime_amd64.dylib"
	}
	if runtime.GOARCH == "arm64" {
		return "third_party/onnxruntime_arm64.so"
	}
	return "third_party/onnxruntime.so"
}

// anchorCount returns the number of anchor positions a YOLO-family model
// emits for a square input: one per cell at strides 8, 16 and 32.
func anchorCount(inputSize int) int {
	total := 0
	for _, stride := range []int{8, 16, 32} {
		side := inputSize / stride
		total += side * side
	}
	return total
}
