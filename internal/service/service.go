// Package service orchestrates one inference request end to end:
// decode -> normalize -> score -> best-effort transcribe -> verdict.
package service

import (
	"context"
	"strings"

	"github.com/Krishang91/capstone/internal/audio"
	"github.com/Krishang91/capstone/internal/config"
	apperrors "github.com/Krishang91/capstone/internal/errors"
	"github.com/Krishang91/capstone/internal/scorer"
	"github.com/Krishang91/capstone/internal/syncx"
	"github.com/Krishang91/capstone/internal/trace"
	"github.com/Krishang91/capstone/internal/transcriber"
)

// Prediction is the wire-shaped verdict for a single file.
type Prediction struct {
	Filename   string  `json:"filename"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
	Transcript string  `json:"transcript"`
}

// BatchItem is one uploaded file in a batch request.
type BatchItem struct {
	Filename string
	Data     []byte
}

// BatchResult tags each batch item with either its verdict or its error;
// exactly one of Prediction and Err is set. The transport layer decides
// the wire shape.
type BatchResult struct {
	Prediction *Prediction
	Filename   string
	Err        string
	Code       apperrors.Code
}

// Health reports service readiness.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Info describes the active scorer variant.
type Info struct {
	ModelName    string  `json:"model_name"`
	ModelVariant string  `json:"model_variant"`
	Threshold    float64 `json:"threshold"`
}

// Service owns the model handle and the request pipeline. The scorer slot
// starts empty and is installed once loading completes; until then every
// predict fails with MODEL_UNAVAILABLE and health reports degraded.
type Service struct {
	cfg *config.Server
	sc  *syncx.Guard[scorer.Scorer]
	stt transcriber.Transcriber
	sem chan struct{}
}

// New creates a service without a scorer. stt may be nil; transcripts then
// always carry the unavailable sentinel.
func New(cfg *config.Server, stt transcriber.Transcriber) *Service {
	if stt == nil {
		stt = transcriber.None{}
	}
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 1
	}
	return &Service{
		cfg: cfg,
		sc:  syncx.NewGuard[scorer.Scorer](nil),
		stt: stt,
		sem: make(chan struct{}, maxConc),
	}
}

// SetScorer installs the loaded model handle. Called once at startup when
// loading succeeds; requests racing the install see MODEL_UNAVAILABLE.
func (s *Service) SetScorer(sc scorer.Scorer) {
	s.sc.Set(sc)
}

// Health reports ok once the model handle is installed.
func (s *Service) Health() Health {
	loaded := s.sc.Get() != nil
	status := "ok"
	if !loaded {
		status = "degraded"
	}
	return Health{Status: status, ModelLoaded: loaded}
}

// Info reports the configured model identity.
func (s *Service) Info() Info {
	return Info{
		ModelName:    s.cfg.ModelName,
		ModelVariant: s.cfg.ModelVariant,
		Threshold:    s.cfg.Threshold,
	}
}

// Predict scores a single uploaded file. The upload is consumed entirely
// in memory; nothing is retained after the response on any exit path.
func (s *Service) Predict(ctx context.Context, filename string, data []byte) (*Prediction, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	default:
		return nil, apperrors.Newf(apperrors.CodeServiceBusy,
			"concurrency limit %d reached", cap(s.sem))
	}

	sc := s.sc.Get()
	if sc == nil {
		return nil, apperrors.New(apperrors.CodeModelUnavailable, "model not loaded")
	}

	if !strings.HasSuffix(strings.ToLower(filename), ".wav") {
		return nil, apperrors.Newf(apperrors.CodeUnsupportedFormat,
			"only WAV files are supported, got %q", filename)
	}

	log := trace.Logger(ctx).With("filename", filename)

	clip, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, err
	}

	waveform, err := audio.Normalize(clip)
	if err != nil {
		return nil, err
	}

	score, err := sc.Score(ctx, waveform)
	if err != nil {
		log.Error("inference failed", "error", err)
		if apperrors.CodeOf(err) == apperrors.CodeUnknown {
			err = apperrors.Wrap(err, apperrors.CodeInference, "score waveform")
		}
		return nil, err
	}

	verdict := scorer.Decide(score, s.cfg.Threshold)

	// Transcription is enrichment only: a failure here must never roll
	// back the verdict that was already computed.
	transcript := transcriber.Unavailable
	if text, terr := s.stt.Transcribe(ctx, clip); terr == nil && text != "" {
		transcript = text
	} else if terr != nil {
		log.Debug("transcript skipped", "error", terr)
	}

	log.Info("prediction",
		"label", verdict.Label,
		"confidence", verdict.Confidence,
		"score", verdict.RawScore,
		"duration_s", clip.Duration(),
	)

	return &Prediction{
		Filename:   filename,
		Prediction: string(verdict.Label),
		Confidence: verdict.Confidence,
		Score:      verdict.RawScore,
		Transcript: transcript,
	}, nil
}

// PredictBatch scores each item independently: one malformed item yields a
// tagged error entry and never aborts its siblings.
func (s *Service) PredictBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		pred, err := s.Predict(ctx, item.Filename, item.Data)
		if err != nil {
			results = append(results, BatchResult{
				Filename: item.Filename,
				Err:      err.Error(),
				Code:     apperrors.CodeOf(err),
			})
			continue
		}
		results = append(results, BatchResult{Prediction: pred, Filename: item.Filename})
	}
	return results
}
