// Package audio holds the waveform types and the fixed-length
// normalization step that feeds the scorer.
package audio

// Clip is a decoded PCM recording. Samples are float amplitudes in
// [-1, 1], interleaved when Channels > 1. A clip is consumed exactly once
// by normalization and is not retained afterward.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Channels) / float64(c.SampleRate)
}

// Mono returns the samples downmixed to a single channel without any
// padding or truncation. Single-channel clips are returned as-is.
func (c *Clip) Mono() []float32 {
	if c.Channels <= 1 {
		return c.Samples
	}
	return downmix(c.Samples, c.Channels)
}
