//go:build !whisper

package transcriber

import "errors"

var errWhisperUnavailable = errors.New("transcriber: whisper backend not available (build without -tags whisper)")

// NewWhisper returns an error when built without the whisper tag; callers
// fall back to None and verdicts carry the Unavailable sentinel.
func NewWhisper(_ string) (Transcriber, error) {
	return nil, errWhisperUnavailable
}
