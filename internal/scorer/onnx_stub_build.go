//go:build !onnx

package scorer

import apperrors "github.com/Krishang91/capstone/internal/errors"

// NativeAvailable reports that no ONNX backend is compiled in.
func NativeAvailable() bool { return false }

// Load returns an error when built without the onnx tag. The service still
// starts and reports degraded health until a scorer is installed.
func Load(_, _ string) (Scorer, error) {
	return nil, apperrors.New(apperrors.CodeModelUnavailable,
		"onnx backend not available (build without -tags onnx)")
}
