package edge

import (
	"github.com/spf13/afero"
	wave "github.com/zenwerk/go-wave"

	apperrors "github.com/Krishang91/capstone/internal/errors"
)

// encodeWAV writes samples as a 16-bit mono WAV through a temp file on
// fs and returns its bytes. The temp file is removed on every path.
func encodeWAV(fs afero.Fs, dir string, sampleRate int, samples []int16) ([]byte, error) {
	f, err := afero.TempFile(fs, dir, "capture-*.wav")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create temp wav")
	}
	name := f.Name()
	defer fs.Remove(name)

	w, err := wave.NewWriter(wave.WriterParam{
		Out:           f,
		Channel:       1,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
	})
	if err != nil {
		f.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "open wav writer")
	}

	if _, err := w.WriteSample16(samples); err != nil {
		w.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "write wav samples")
	}
	// Close finalizes the RIFF header and closes the file.
	if err := w.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "finalize wav")
	}

	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "read back wav")
	}
	return data, nil
}
