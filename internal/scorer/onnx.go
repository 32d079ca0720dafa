//go:build onnx

package scorer

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Krishang91/capstone/internal/audio"
	apperrors "github.com/Krishang91/capstone/internal/errors"
)

// ortInitOnce ensures the ONNX Runtime environment is initialized exactly
// once per process. The error is kept at package scope so later Load calls
// surface the original failure.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// onnxScorer runs the exported AASIST model through ONNX Runtime. The
// session is the process-wide ModelHandle: created once, read-only, shared
// by all requests. Input and output tensors are allocated per call so
// concurrent requests never share scratch memory.
type onnxScorer struct {
	session *ort.DynamicAdvancedSession
}

// NativeAvailable reports that the ONNX backend is compiled in.
func NativeAvailable() bool { return true }

// Load initializes ONNX Runtime and creates the inference session for the
// model at modelPath. libPath optionally points at the onnxruntime shared
// library; empty means the platform default.
func Load(modelPath, libPath string) (Scorer, error) {
	ortInitOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", ortInitErr)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"output"},
		nil, // default session options
	)
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", modelPath, err)
	}

	return &onnxScorer{session: session}, nil
}

func (s *onnxScorer) Score(ctx context.Context, waveform []float32) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(waveform) != audio.WaveformLen {
		return 0, apperrors.Newf(apperrors.CodeInference,
			"waveform length %d, scorer expects %d", len(waveform), audio.WaveformLen)
	}

	input, err := ort.NewTensor(ort.NewShape(1, audio.WaveformLen), waveform)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInference, "create input tensor")
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInference, "run inference")
	}
	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, apperrors.New(apperrors.CodeInference, "unexpected output tensor type")
	}
	defer out.Destroy()

	data := out.GetData()
	if len(data) == 0 {
		return 0, apperrors.New(apperrors.CodeInference, "empty output tensor")
	}

	// Single-logit exports emit the score directly; two-logit exports
	// carry the bonafide logit in the last position.
	score := float64(data[len(data)-1])
	if err := checkScore(score); err != nil {
		return 0, err
	}
	return score, nil
}

// Close releases the session. Safe to call once at shutdown.
func (s *onnxScorer) Close() error {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}
