package transcriber

import "errors"

// errUnavailable marks a degraded transcription. It stays internal: the
// service layer only needs to know the call failed.
var errUnavailable = errors.New("transcriber: no transcript available")
