package edge

import (
	"log/slog"
	"time"

	"github.com/warthog618/go-gpiocdev"

	apperrors "github.com/Krishang91/capstone/internal/errors"
)

// Pin is a single writable output line.
type Pin interface {
	Set(on bool) error
	Close() error
}

// GPIOTrigger watches a button wired active-low with the internal
// pull-up: a falling edge is a press, a rising edge a release.
type GPIOTrigger struct {
	line   *gpiocdev.Line
	events chan TriggerEvent
}

// NewGPIOTrigger requests the button line on chip with hardware debounce.
func NewGPIOTrigger(chip string, offset int, debounce time.Duration) (*GPIOTrigger, error) {
	t := &GPIOTrigger{events: make(chan TriggerEvent, 16)}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(t.handle))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInternal,
			"request trigger line %d on %s", offset, chip)
	}
	t.line = line
	return t, nil
}

func (t *GPIOTrigger) handle(evt gpiocdev.LineEvent) {
	ev := TriggerEvent{
		Pressed: evt.Type == gpiocdev.LineEventFallingEdge,
		At:      time.Now(),
	}
	select {
	case t.events <- ev:
	default:
		slog.Warn("trigger event dropped", "pressed", ev.Pressed)
	}
}

// Events returns the button transition channel.
func (t *GPIOTrigger) Events() <-chan TriggerEvent { return t.events }

// Close releases the line and closes the events channel.
func (t *GPIOTrigger) Close() error {
	err := t.line.Close()
	close(t.events)
	return err
}

type gpioPin struct {
	line *gpiocdev.Line
}

// OpenLED requests an output line driving an LED, initially off.
func OpenLED(chip string, offset int) (Pin, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeInternal,
			"request LED line %d on %s", offset, chip)
	}
	return &gpioPin{line: line}, nil
}

func (p *gpioPin) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return p.line.SetValue(v)
}

func (p *gpioPin) Close() error { return p.line.Close() }
