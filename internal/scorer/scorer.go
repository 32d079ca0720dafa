// Package scorer wraps the spoof-detection model: a loaded handle maps a
// fixed-length waveform to a raw authenticity score, and the decision rule
// turns that score into a verdict.
package scorer

import (
	"context"
	"math"

	apperrors "github.com/Krishang91/capstone/internal/errors"
)

// DefaultThreshold is the decision boundary on the raw score. The model
// emits higher scores for bonafide speech, so score < threshold means fake.
const DefaultThreshold = 0.0

// Label is the binary outcome of a scoring decision.
type Label string

const (
	LabelReal Label = "real"
	LabelFake Label = "fake"
)

// Verdict is the immutable result of one inference call.
type Verdict struct {
	Label      Label
	Confidence float64
	RawScore   float64
}

// Scorer maps a normalized waveform of exactly audio.WaveformLen samples
// to a raw score. Implementations must be safe for concurrent use and must
// not mutate shared model state per call.
type Scorer interface {
	Score(ctx context.Context, waveform []float32) (float64, error)
}

// Decide applies the fixed decision rule: fake iff score < threshold, with
// confidence sigmoid(|score - threshold|)-shaped so it is 0.5 at the
// boundary and strictly increases with the margin on either side.
func Decide(score, threshold float64) Verdict {
	conf := sigmoid(score - threshold)
	label := LabelReal
	if score < threshold {
		label = LabelFake
		conf = 1 - conf
	}
	return Verdict{Label: label, Confidence: conf, RawScore: score}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// checkScore rejects non-finite model output. A NaN must surface as an
// inference failure, never default to a verdict.
func checkScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return apperrors.Newf(apperrors.CodeInference, "model produced non-finite score %v", score)
	}
	return nil
}
