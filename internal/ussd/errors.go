package ussd

import "errors"

// Error kinds surfaced by validators and backend calls. Malformed input and
// directory misses re-prompt the caller; conflicts re-prompt with an
// already-taken message; backend failures map to a generic retry text and
// leave the session unadvanced.
var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrNotFound           = errors.New("selection not found")
	ErrConflict           = errors.New("conflict")
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrDeclined is returned when the caller picks an explicit decline
	// option; the session ends as cancelled, not as an invalid attempt.
	ErrDeclined = errors.New("declined")

	// ErrNoActiveSession is returned by session stores when no live session
	// exists for a phone number (including lazily-expired ones).
	ErrNoActiveSession = errors.New("no active session")
)

// flowError carries the user-facing re-prompt text alongside the kind.
type flowError struct {
	kind error
	text string
}

func (e *flowError) Error() string { return e.kind.Error() + ": " + e.text }

func (e *flowError) Unwrap() error { return e.kind }

func malformed(text string) error {
	return &flowError{kind: ErrMalformedInput, text: text}
}

func notFound(text string) error {
	return &flowError{kind: ErrNotFound, text: text}
}

func conflict(text string) error {
	return &flowError{kind: ErrConflict, text: text}
}

// userText extracts the re-prompt message from a flow error, if any.
func userText(err error) string {
	var fe *flowError
	if errors.As(err, &fe) {
		return fe.text
	}
	return ""
}
