package audio

import (
	apperrors "github.com/Krishang91/capstone/internal/errors"
)

// WaveformLen is the fixed sample count the scorer accepts: 64600 samples,
// about 4.04 s at 16 kHz. It must match the length used at training time.
const WaveformLen = 64600

// Normalize converts a clip of any non-zero length into the scorer's
// fixed-shape mono waveform. Multi-channel input is downmixed by averaging
// each interleaved frame; shorter clips are right-padded with zeros; longer
// clips keep their first WaveformLen samples, no resampling. The policy is
// deterministic: identical clips always yield identical waveforms.
func Normalize(c *Clip) ([]float32, error) {
	if c == nil || len(c.Samples) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidAudio, "cannot normalize an empty clip")
	}
	if c.Channels < 1 {
		return nil, apperrors.Newf(apperrors.CodeInvalidAudio, "unsupported channel count %d", c.Channels)
	}
	if c.SampleRate <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidAudio, "unknown sample rate %d", c.SampleRate)
	}

	mono := c.Samples
	if c.Channels > 1 {
		mono = downmix(c.Samples, c.Channels)
		if len(mono) == 0 {
			return nil, apperrors.New(apperrors.CodeInvalidAudio, "clip shorter than one frame")
		}
	}

	// Zero right-pad by allocation; copy handles truncation.
	out := make([]float32, WaveformLen)
	copy(out, mono)
	return out, nil
}

// downmix averages interleaved channels into mono. A trailing partial
// frame is dropped.
func downmix(samples []float32, channels int) []float32 {
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
