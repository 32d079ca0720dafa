// Package transcriber provides best-effort speech-to-text enrichment for
// verdicts. Transcription failure is never fatal: the service substitutes
// the Unavailable sentinel and the verdict stands.
package transcriber

import (
	"context"

	"github.com/Krishang91/capstone/internal/audio"
)

// Unavailable is the sentinel placed in responses when no transcript
// could be produced.
const Unavailable = "[unavailable]"

// Transcriber maps a clip to text. Errors are absorbed by the caller.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *audio.Clip) (string, error)
}

// None is a Transcriber that always reports unavailability. Used when the
// whisper backend is not compiled in or no model path is configured.
type None struct{}

func (None) Transcribe(context.Context, *audio.Clip) (string, error) {
	return "", errUnavailable
}
