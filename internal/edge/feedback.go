package edge

import (
	"context"
	"log/slog"
	"time"
)

// Outcome is what the panel communicates after a cycle.
type Outcome int

const (
	OutcomeReal Outcome = iota
	OutcomeFake
	OutcomeError
)

func (o Outcome) String() string {
	return [...]string{"real", "fake", "error"}[o]
}

// Patterns controls the LED timing. Tests shrink the durations.
type Patterns struct {
	Blinks        int
	BlinkInterval time.Duration
	Hold          time.Duration
	ErrorBlinks   int
	ErrorInterval time.Duration
}

// DefaultPatterns returns the stock timing: blink three times then
// hold for three seconds on a verdict, rapid double-blink on error.
func DefaultPatterns() Patterns {
	return Patterns{
		Blinks:        3,
		BlinkInterval: 200 * time.Millisecond,
		Hold:          3 * time.Second,
		ErrorBlinks:   5,
		ErrorInterval: 100 * time.Millisecond,
	}
}

// Panel drives the verdict LEDs.
type Panel struct {
	red   Pin
	green Pin
	pat   Patterns
}

// NewPanel creates a panel over the two LED pins.
func NewPanel(red, green Pin, pat Patterns) *Panel {
	return &Panel{red: red, green: green, pat: pat}
}

// Render plays the pattern for outcome and always leaves both LEDs
// off, even when ctx is cancelled mid-pattern.
func (p *Panel) Render(ctx context.Context, outcome Outcome) {
	defer p.allOff()

	switch outcome {
	case OutcomeReal:
		p.verdict(ctx, p.green)
	case OutcomeFake:
		p.verdict(ctx, p.red)
	case OutcomeError:
		for i := 0; i < p.pat.ErrorBlinks; i++ {
			p.set(p.red, true)
			p.set(p.green, true)
			if !p.pause(ctx, p.pat.ErrorInterval) {
				return
			}
			p.allOff()
			if !p.pause(ctx, p.pat.ErrorInterval) {
				return
			}
		}
	}
}

func (p *Panel) verdict(ctx context.Context, led Pin) {
	for i := 0; i < p.pat.Blinks; i++ {
		p.set(led, true)
		if !p.pause(ctx, p.pat.BlinkInterval) {
			return
		}
		p.set(led, false)
		if !p.pause(ctx, p.pat.BlinkInterval) {
			return
		}
	}
	p.set(led, true)
	p.pause(ctx, p.pat.Hold)
}

func (p *Panel) allOff() {
	p.set(p.red, false)
	p.set(p.green, false)
}

func (p *Panel) set(pin Pin, on bool) {
	if err := pin.Set(on); err != nil {
		slog.Warn("LED write failed", "error", err)
	}
}

// pause sleeps for d, returning false if ctx was cancelled first.
func (p *Panel) pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
