//go:build whisper

package transcriber

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/Krishang91/capstone/internal/audio"
)

// whisperTranscriber runs whisper.cpp over the captured clip. The model is
// loaded once; each call gets its own processing context.
type whisperTranscriber struct {
	model whisper.Model
}

// NewWhisper loads a whisper model from path.
func NewWhisper(modelPath string) (Transcriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", modelPath, err)
	}
	return &whisperTranscriber{model: model}, nil
}

func (t *whisperTranscriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if clip == nil || len(clip.Samples) == 0 {
		return "", errUnavailable
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}

	// Whisper expects mono float32; multi-channel uploads are averaged.
	if err := wctx.Process(clip.Mono(), nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return "", errUnavailable
	}
	return text, nil
}
