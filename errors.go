package sonic

import (
	"errors"
	"fmt"

	"github.com/cbegin/sonic-go/internal/voice"
)

var (
	// ErrEngineNotInitialized is returned by note and parameter calls made
	// before Initialize succeeded or after Teardown.
	ErrEngineNotInitialized = errors.New("sonic: engine not initialized")
	// ErrInvalidNote is returned for a note identifier that names no pitch.
	ErrInvalidNote = voice.ErrInvalidNote
	// ErrInvalidParameter is returned for values that cannot be decoded or
	// clamped, such as NaN or a malformed waveform name.
	ErrInvalidParameter = errors.New("sonic: invalid parameter value")
	// ErrUnknownParameter is returned for an unrecognized parameter kind.
	ErrUnknownParameter = errors.New("sonic: unknown parameter kind")
)

// AudioContextError reports that the audio output could not be started. The
// engine stays uninitialized; Initialize may be retried.
type AudioContextError struct {
	Backend string
	Err     error
}

func (e *AudioContextError) Error() string {
	return fmt.Sprintf("sonic: audio context unavailable (backend %s): %v", e.Backend, e.Err)
}

func (e *AudioContextError) Unwrap() error { return e.Err }
