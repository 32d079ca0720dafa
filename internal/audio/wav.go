package audio

import (
	"bytes"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	apperrors "github.com/Krishang91/capstone/internal/errors"
)

// DecodeWAV parses an uploaded WAV container into a Clip. The baseline
// guarantee is uncompressed PCM; anything the RIFF parser rejects surfaces
// as UNSUPPORTED_FORMAT, a well-formed container with no samples as
// INVALID_AUDIO.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidAudio, "empty upload")
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, apperrors.New(apperrors.CodeUnsupportedFormat, "not a valid WAV container")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnsupportedFormat, "decode PCM")
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidAudio, "clip contains no samples")
	}

	channels := int(d.NumChans)
	if channels < 1 {
		return nil, apperrors.New(apperrors.CodeInvalidAudio, "unsupported channel layout")
	}

	return &Clip{
		Samples:    scaleToUnit(buf, d.BitDepth),
		SampleRate: int(d.SampleRate),
		Channels:   channels,
	}, nil
}

// scaleToUnit maps integer PCM into [-1, 1]. 8-bit WAV is unsigned and
// centered at 128; deeper depths are signed two's complement, so the full
// int16/int24/int32 range maps inside the unit interval, matching the
// trained input range.
func scaleToUnit(buf *gaudio.IntBuffer, bitDepth uint16) []float32 {
	samples := make([]float32, len(buf.Data))
	if bitDepth == 8 {
		for i, v := range buf.Data {
			samples[i] = (float32(v) - 128) / 128
		}
		return samples
	}
	scale := float32(int64(1) << (bitDepth - 1))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return samples
}
