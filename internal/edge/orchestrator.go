package edge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/Krishang91/capstone/internal/client"
	"github.com/Krishang91/capstone/internal/config"
)

// Predictor is the slice of the service client the loop needs.
type Predictor interface {
	Predict(ctx context.Context, filename string, wav []byte) (*client.Prediction, error)
}

// Orchestrator owns one capture cycle at a time: press starts the
// recorder, release uploads the take and renders the verdict.
type Orchestrator struct {
	cfg     *config.Edge
	trigger Trigger
	rec     *Recorder
	panel   *Panel
	api     Predictor
	fs      afero.Fs
}

// New wires the loop together. fs carries the temp WAV files.
func New(cfg *config.Edge, trigger Trigger, rec *Recorder, panel *Panel, api Predictor, fs afero.Fs) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		trigger: trigger,
		rec:     rec,
		panel:   panel,
		api:     api,
		fs:      fs,
	}
}

// Run processes trigger events until ctx is cancelled or the trigger
// closes. Presses during a running cycle are dropped afterwards, so a
// slow request never queues up stale cycles.
func (o *Orchestrator) Run(ctx context.Context) error {
	recording := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-o.trigger.Events():
			if !ok {
				return nil
			}
			if ev.Pressed {
				if err := o.rec.Begin(); err != nil {
					slog.Error("capture start failed", "error", err)
					o.panel.Render(ctx, OutcomeError)
					continue
				}
				recording = true
				continue
			}
			// A release whose press was dropped by the drain (or never
			// happened) ends no cycle.
			if !recording {
				slog.Debug("ignoring release without a matching press")
				continue
			}
			recording = false
			o.completeCycle(ctx)
			o.drainPending()
		}
	}
}

func (o *Orchestrator) completeCycle(ctx context.Context) {
	o.rec.End()
	samples := o.rec.Take()
	if len(samples) == 0 {
		slog.Warn("empty capture, nothing to send")
		o.panel.Render(ctx, OutcomeError)
		return
	}

	started := time.Now()
	wav, err := encodeWAV(o.fs, o.cfg.TempDir, o.rec.SampleRate(), samples)
	if err != nil {
		slog.Error("wav encode failed", "error", err)
		o.panel.Render(ctx, OutcomeError)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	filename := fmt.Sprintf("capture-%d.wav", started.UnixMilli())
	pred, err := o.api.Predict(reqCtx, filename, wav)
	if err != nil {
		slog.Error("prediction request failed",
			"samples", len(samples), "error", err)
		o.panel.Render(ctx, OutcomeError)
		return
	}

	outcome := OutcomeReal
	if pred.Prediction == "fake" {
		outcome = OutcomeFake
	}
	slog.Info("verdict",
		"prediction", pred.Prediction,
		"confidence", pred.Confidence,
		"score", pred.Score,
		"duration", time.Since(started))
	o.panel.Render(ctx, outcome)
}

// drainPending discards trigger events that queued up while the cycle
// was busy rendering or waiting on the service.
func (o *Orchestrator) drainPending() {
	for {
		select {
		case ev, ok := <-o.trigger.Events():
			if !ok {
				return
			}
			slog.Debug("dropping queued trigger event", "pressed", ev.Pressed)
		default:
			return
		}
	}
}
