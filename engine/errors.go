package engine

import "fmt"

// ErrRecognitionFailed indicates a recognition request that could not be
// served because the only available signal (the image embedding) failed.
// Geocoding failures never produce this error; they fall through to the
// visual attempt instead.
//
// The underlying cause (e.g. embed.ErrInvalidImage) is reachable via
// errors.Unwrap.
type ErrRecognitionFailed struct {
	cause error
}

func (e *ErrRecognitionFailed) Error() string {
	return fmt.Sprintf("recognition failed: %v", e.cause)
}

func (e *ErrRecognitionFailed) Unwrap() error { return e.cause }

// ErrValidation indicates malformed feedback input. It is a caller error.
//
// The underlying cause (if any) is reachable via errors.Unwrap.
type ErrValidation struct {
	Reason string
	cause  error
}

func (e *ErrValidation) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid feedback: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("invalid feedback: %s", e.Reason)
}

func (e *ErrValidation) Unwrap() error { return e.cause }
