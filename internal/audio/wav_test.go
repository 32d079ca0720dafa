package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	apperrors "github.com/Krishang91/capstone/internal/errors"
)

// makeWAV builds a minimal PCM16 WAV container in memory.
func makeWAV(t *testing.T, samples []int16, channels, sampleRate int) []byte {
	t.Helper()

	var data bytes.Buffer
	for _, s := range samples {
		if err := binary.Write(&data, binary.LittleEndian, s); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, -32768}
	clip, err := DecodeWAV(makeWAV(t, samples, 1, 16000))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}

	if clip.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Channels = %d, want 1", clip.Channels)
	}
	if len(clip.Samples) != len(samples) {
		t.Fatalf("sample count = %d, want %d", len(clip.Samples), len(samples))
	}

	// Amplitudes scale into [-1, 1].
	if math.Abs(float64(clip.Samples[1])-0.5) > 1e-3 {
		t.Errorf("Samples[1] = %v, want ~0.5", clip.Samples[1])
	}
	for i, s := range clip.Samples {
		if s < -1 || s > 1 {
			t.Errorf("Samples[%d] = %v out of [-1, 1]", i, s)
		}
	}
}

// makeWAV8 builds a minimal mono unsigned 8-bit PCM WAV container.
func makeWAV8(t *testing.T, samples []byte, sampleRate int) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(samples)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(8)) // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)

	return buf.Bytes()
}

func TestDecodeWAV8BitRecentered(t *testing.T) {
	// Unsigned 8-bit: 128 is silence, 0 full negative, 255 near full
	// positive. None of it may land outside [-1, 1] or off-center.
	clip, err := DecodeWAV(makeWAV8(t, []byte{128, 0, 255, 192, 64}, 16000))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}

	want := []float64{0, -1, 127.0 / 128, 0.5, -0.5}
	for i, w := range want {
		if math.Abs(float64(clip.Samples[i])-w) > 1e-3 {
			t.Errorf("Samples[%d] = %v, want ~%v", i, clip.Samples[i], w)
		}
	}
	for i, s := range clip.Samples {
		if s < -1 || s > 1 {
			t.Errorf("Samples[%d] = %v out of [-1, 1]", i, s)
		}
	}
}

func TestDecodeWAVStereo(t *testing.T) {
	clip, err := DecodeWAV(makeWAV(t, []int16{100, 200, 300, 400}, 2, 44100))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if clip.Channels != 2 {
		t.Errorf("Channels = %d, want 2", clip.Channels)
	}
	if clip.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", clip.SampleRate)
	}
}

func TestDecodeWAVGarbage(t *testing.T) {
	_, err := DecodeWAV([]byte("definitely not a riff container"))
	if !apperrors.IsCode(err, apperrors.CodeUnsupportedFormat) {
		t.Errorf("err = %v, want UNSUPPORTED_FORMAT", err)
	}
}

func TestDecodeWAVEmpty(t *testing.T) {
	_, err := DecodeWAV(nil)
	if !apperrors.IsCode(err, apperrors.CodeInvalidAudio) {
		t.Errorf("err = %v, want INVALID_AUDIO", err)
	}
}
