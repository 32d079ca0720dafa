package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Krishang91/capstone/internal/audio"
	"github.com/Krishang91/capstone/internal/config"
	apperrors "github.com/Krishang91/capstone/internal/errors"
	"github.com/Krishang91/capstone/internal/scorer"
	"github.com/Krishang91/capstone/internal/transcriber"
)

// wavBytes builds a PCM16 mono WAV where every sample has the given
// amplitude. With the stub scorer the resulting score is proportional to
// amp, so each input has a recognizable fingerprint.
func wavBytes(t *testing.T, amp int16, n int) []byte {
	t.Helper()

	var data bytes.Buffer
	for i := 0; i < n; i++ {
		binary.Write(&data, binary.LittleEndian, amp)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(16000))
	binary.Write(&buf, binary.LittleEndian, uint32(32000))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

// failingTranscriber simulates a crashed speech-to-text backend.
type failingTranscriber struct{}

func (failingTranscriber) Transcribe(context.Context, *audio.Clip) (string, error) {
	return "", errors.New("decoder crashed")
}

func testConfig() *config.Server {
	return &config.Server{
		ModelName:     "AASIST",
		ModelVariant:  "L",
		Threshold:     0.0,
		MaxConcurrent: 4,
	}
}

func newTestService(t *testing.T, sc scorer.Scorer, stt transcriber.Transcriber) *Service {
	t.Helper()
	s := New(testConfig(), stt)
	if sc != nil {
		s.SetScorer(sc)
	}
	return s
}

func TestPredictSuccess(t *testing.T) {
	// Positive amplitude -> positive mean -> score above threshold -> real.
	s := newTestService(t, &scorer.StubScorer{Gain: 100}, nil)

	pred, err := s.Predict(context.Background(), "sample.wav", wavBytes(t, 8000, 16000))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if pred.Prediction != "real" {
		t.Errorf("prediction = %q, want real", pred.Prediction)
	}
	if pred.Score <= 0 {
		t.Errorf("score = %v, want > 0", pred.Score)
	}
	if pred.Confidence <= 0.5 || pred.Confidence > 1 {
		t.Errorf("confidence = %v, want (0.5, 1]", pred.Confidence)
	}
	if pred.Filename != "sample.wav" {
		t.Errorf("filename = %q", pred.Filename)
	}
	if pred.Transcript != transcriber.Unavailable {
		t.Errorf("transcript = %q, want sentinel without a transcriber", pred.Transcript)
	}
}

func TestPredictFakeLabel(t *testing.T) {
	s := newTestService(t, &scorer.StubScorer{Gain: 100}, nil)

	pred, err := s.Predict(context.Background(), "spoof.wav", wavBytes(t, -8000, 16000))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Prediction != "fake" {
		t.Errorf("prediction = %q, want fake for negative score", pred.Prediction)
	}
}

func TestPredictModelUnavailable(t *testing.T) {
	s := newTestService(t, nil, nil)

	_, err := s.Predict(context.Background(), "a.wav", wavBytes(t, 100, 100))
	if !apperrors.IsCode(err, apperrors.CodeModelUnavailable) {
		t.Errorf("err = %v, want MODEL_UNAVAILABLE", err)
	}
}

func TestPredictRejectsNonWAVFilename(t *testing.T) {
	s := newTestService(t, &scorer.StubScorer{}, nil)

	_, err := s.Predict(context.Background(), "speech.mp3", wavBytes(t, 100, 100))
	if !apperrors.IsCode(err, apperrors.CodeUnsupportedFormat) {
		t.Errorf("err = %v, want UNSUPPORTED_FORMAT", err)
	}
}

func TestPredictMalformedContainer(t *testing.T) {
	s := newTestService(t, &scorer.StubScorer{}, nil)

	_, err := s.Predict(context.Background(), "a.wav", []byte("not audio at all"))
	if !apperrors.IsCode(err, apperrors.CodeUnsupportedFormat) {
		t.Errorf("err = %v, want UNSUPPORTED_FORMAT", err)
	}
}

func TestPredictInferenceErrorNotCoerced(t *testing.T) {
	s := newTestService(t, &scorer.StubScorer{
		Err: apperrors.New(apperrors.CodeInference, "NaN propagated"),
	}, nil)

	pred, err := s.Predict(context.Background(), "a.wav", wavBytes(t, 100, 100))
	if pred != nil {
		t.Fatal("inference failure must not yield a verdict")
	}
	if !apperrors.IsCode(err, apperrors.CodeInference) {
		t.Errorf("err = %v, want INFERENCE_FAILED", err)
	}
}

func TestPredictTranscriptFailureAbsorbed(t *testing.T) {
	s := newTestService(t, &scorer.StubScorer{Gain: 100}, failingTranscriber{})

	pred, err := s.Predict(context.Background(), "a.wav", wavBytes(t, 4000, 8000))
	if err != nil {
		t.Fatalf("transcript failure must not fail the request: %v", err)
	}
	if pred.Transcript != transcriber.Unavailable {
		t.Errorf("transcript = %q, want %q", pred.Transcript, transcriber.Unavailable)
	}
	if pred.Prediction != "real" || pred.Confidence <= 0.5 {
		t.Errorf("verdict degraded alongside transcript: %+v", pred)
	}
}

func TestPredictBatchIndependentItems(t *testing.T) {
	s := newTestService(t, &scorer.StubScorer{Gain: 100}, nil)

	items := []BatchItem{
		{Filename: "one.wav", Data: wavBytes(t, 5000, 8000)},
		{Filename: "two.wav", Data: []byte("garbage")},
		{Filename: "three.wav", Data: wavBytes(t, -5000, 8000)},
	}

	results := s.PredictBatch(context.Background(), items)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	if results[0].Prediction == nil || results[0].Prediction.Prediction != "real" {
		t.Errorf("item 1 = %+v, want real verdict", results[0])
	}
	if results[1].Prediction != nil || results[1].Err == "" {
		t.Errorf("item 2 = %+v, want error entry", results[1])
	}
	if results[1].Code != apperrors.CodeUnsupportedFormat {
		t.Errorf("item 2 code = %s, want UNSUPPORTED_FORMAT", results[1].Code)
	}
	if results[1].Filename != "two.wav" {
		t.Errorf("item 2 filename = %q", results[1].Filename)
	}
	if results[2].Prediction == nil || results[2].Prediction.Prediction != "fake" {
		t.Errorf("item 3 = %+v, want fake verdict", results[2])
	}
}

// blockingScorer parks until released, to hold the semaphore.
type blockingScorer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingScorer) Score(ctx context.Context, _ []float32) (float64, error) {
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return 1, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestPredictServiceBusy(t *testing.T) {
	blocker := &blockingScorer{entered: make(chan struct{}, 1), release: make(chan struct{})}
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	s := New(cfg, nil)
	s.SetScorer(blocker)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.Predict(context.Background(), "slow.wav", wavBytes(t, 100, 100))
	}()
	<-blocker.entered // first request holds the only slot

	_, err := s.Predict(context.Background(), "rejected.wav", wavBytes(t, 100, 100))
	if !apperrors.IsCode(err, apperrors.CodeServiceBusy) {
		t.Errorf("err = %v, want SERVICE_BUSY", err)
	}

	close(blocker.release)
	wg.Wait()

	// Slot is free again after the first request drains.
	if _, err := s.Predict(context.Background(), "ok.wav", wavBytes(t, 100, 100)); err != nil {
		t.Errorf("post-drain Predict: %v", err)
	}
}

func TestPredictConcurrentNoCrossContamination(t *testing.T) {
	amps := []int16{-16000, -8000, -4000, -1000, 1000, 4000, 8000, 16000}

	// Admit every request at once: this test is about scratch-state
	// isolation, not the concurrency cap, so none may hit SERVICE_BUSY.
	cfg := testConfig()
	cfg.MaxConcurrent = len(amps)
	s := New(cfg, nil)
	s.SetScorer(&scorer.StubScorer{Gain: 100})
	type res struct {
		amp  int16
		pred *Prediction
		err  error
	}

	out := make(chan res, len(amps))
	var wg sync.WaitGroup
	for _, amp := range amps {
		wg.Add(1)
		go func(a int16) {
			defer wg.Done()
			p, err := s.Predict(context.Background(), "c.wav", wavBytes(t, a, 16000))
			out <- res{amp: a, pred: p, err: err}
		}(amp)
	}
	wg.Wait()
	close(out)

	for r := range out {
		if r.err != nil {
			t.Fatalf("amp %d: %v", r.amp, r.err)
		}
		// Stub score = 100 * mean amplitude; the clip is 16000 samples
		// of amp/32768 padded with zeros to the model window.
		wantScore := 100 * float64(r.amp) / 32768 * 16000 / 64600
		if math.Abs(r.pred.Score-wantScore) > 1e-3 {
			t.Errorf("amp %d: score = %v, want %v (cross-request contamination?)", r.amp, r.pred.Score, wantScore)
		}
		wantLabel := "real"
		if r.amp < 0 {
			wantLabel = "fake"
		}
		if r.pred.Prediction != wantLabel {
			t.Errorf("amp %d: label = %s, want %s", r.amp, r.pred.Prediction, wantLabel)
		}
	}
}

func TestHealthTracksScorer(t *testing.T) {
	s := newTestService(t, nil, nil)

	h := s.Health()
	if h.Status != "degraded" || h.ModelLoaded {
		t.Errorf("pre-load health = %+v", h)
	}

	s.SetScorer(&scorer.StubScorer{})
	h = s.Health()
	if h.Status != "ok" || !h.ModelLoaded {
		t.Errorf("post-load health = %+v", h)
	}
}

func TestInfo(t *testing.T) {
	s := newTestService(t, nil, nil)

	info := s.Info()
	if info.ModelName != "AASIST" || info.ModelVariant != "L" {
		t.Errorf("info = %+v", info)
	}
}
