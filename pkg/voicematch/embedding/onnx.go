//go:build cgo && !js

package embedding

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

func init() {
	Register(BackendONNX, OpenONNX)
}

var ortInit struct {
	sync.Mutex
	done bool
}

func initRuntime(libraryPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ortInit.done || ort.IsInitialized() {
		ortInit.done = true
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	ortInit.done = true
	return nil
}

// ONNX runs a speaker network exported to ONNX, such as ERes2Net or
// ECAPA-TDNN: input [1, T, 80] mean-normalized log-mel features, output
// [1, dim].
type ONNX struct {
	session *ort.DynamicAdvancedSession
	fbank   *Fbank
	dim     int
}

// OpenONNX loads cfg.ONNXModelPath into an onnxruntime session.
func OpenONNX(cfg Config) (Model, error) {
	if cfg.ONNXModelPath == "" {
		return nil, errors.New("onnx backend needs a model path")
	}
	if cfg.ONNXDim <= 0 {
		return nil, fmt.Errorf("invalid onnx embedding dimension %d", cfg.ONNXDim)
	}
	input, output := cfg.ONNXInput, cfg.ONNXOutput
	if input == "" {
		input = "x"
	}
	if output == "" {
		output = "embedding"
	}

	if err := initRuntime(cfg.ONNXLibraryPath); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ONNXModelPath, []string{input}, []string{output}, nil)
	if err != nil {
		return nil, fmt.Errorf("open onnx session %s: %w", cfg.ONNXModelPath, err)
	}

	fc := DefaultFbankConfig()
	fc.SampleRate = cfg.SampleRate
	return &ONNX{session: session, fbank: NewFbank(fc), dim: cfg.ONNXDim}, nil
}

func (o *ONNX) Dimension() int { return o.dim }

// ConcurrencySafe is true: onnxruntime sessions allow concurrent Run.
func (o *ONNX) ConcurrencySafe() bool { return true }

func (o *ONNX) Embed(samples []float32) ([]float32, error) {
	feats := o.fbank.Extract(samples)
	if len(feats) == 0 {
		return nil, errors.New("waveform shorter than one analysis frame")
	}
	SubtractMean(feats)
	bins := len(feats[0])

	in, err := ort.NewTensor(ort.NewShape(1, int64(len(feats)), int64(bins)), Flatten(feats))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(o.dim)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := o.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}

	vec := make([]float32, o.dim)
	copy(vec, out.GetData())
	return vec, nil
}

func (o *ONNX) Close() error {
	return o.session.Destroy()
}
