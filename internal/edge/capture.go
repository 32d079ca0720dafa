package edge

import (
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/Krishang91/capstone/internal/errors"
	"github.com/Krishang91/capstone/internal/syncx"
)

// Stream is one open capture session on an input device.
type Stream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// StreamFactory opens a stream that fills buf on every Read.
type StreamFactory func(buf []int16) (Stream, error)

// PortAudioFactory opens the default input device, mono int16.
func PortAudioFactory(sampleRate int) StreamFactory {
	return func(buf []int16) (Stream, error) {
		s, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buf), buf)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "open default input stream")
		}
		return s, nil
	}
}

type recState int

const (
	recIdle recState = iota
	recRecording
	recStopped
)

// Recorder accumulates microphone samples between Begin and End.
// It is driven from a single goroutine (the orchestrator loop); the
// guard protects the sample buffer against the reader goroutine.
type Recorder struct {
	sampleRate int
	factory    StreamFactory

	state   recState
	stream  Stream
	done    chan struct{}
	readers sync.WaitGroup
	samples *syncx.Guard[[]int16]
}

// NewRecorder creates a recorder reading via factory at sampleRate.
func NewRecorder(sampleRate int, factory StreamFactory) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		factory:    factory,
		samples:    syncx.NewGuard[[]int16](nil),
	}
}

// Begin opens a stream and starts accumulating. A Begin while already
// recording or with samples still pending is a debounced no-op.
func (r *Recorder) Begin() error {
	if r.state != recIdle {
		return nil
	}

	// ~100ms of audio per read
	buf := make([]int16, r.sampleRate/10)
	stream, err := r.factory(buf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return apperrors.Wrap(err, apperrors.CodeInternal, "start capture stream")
	}

	r.stream = stream
	r.done = make(chan struct{})
	r.state = recRecording
	r.samples.Set(nil)

	r.readers.Add(1)
	go func(done chan struct{}) {
		defer r.readers.Done()
		for {
			select {
			case <-done:
				return
			default:
			}

			if err := stream.Read(); err != nil {
				slog.Debug("capture read ended", "error", err)
				return
			}
			frame := append([]int16(nil), buf...)
			r.samples.Update(func(s *[]int16) {
				*s = append(*s, frame...)
			})
		}
	}(r.done)

	return nil
}

// End stops the stream. Samples stay buffered until Take.
func (r *Recorder) End() {
	if r.state != recRecording {
		return
	}
	close(r.done)
	_ = r.stream.Stop()
	r.readers.Wait()
	_ = r.stream.Close()
	r.stream = nil
	r.state = recStopped
}

// Take moves the buffered samples out and resets for the next cycle.
func (r *Recorder) Take() []int16 {
	if r.state == recRecording {
		r.End()
	}
	r.state = recIdle
	return r.samples.Swap(nil)
}

// SampleRate returns the configured capture rate.
func (r *Recorder) SampleRate() int { return r.sampleRate }
