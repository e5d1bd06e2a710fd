package geogenie

import (
	"errors"
	"fmt"

	"github.com/VijetHegde604/GeoGenie-backend/engine"
	"github.com/VijetHegde604/GeoGenie-backend/index"
)

var (
	// ErrInvalidK is returned when the neighbor count is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrRecognitionFailed is returned when a recognition request could
	// not be served at all (the embedding failed and no geo result was
	// available).
	ErrRecognitionFailed = errors.New("recognition failed")

	// ErrInvalidFeedback is returned when a feedback submission is
	// malformed (empty corrected name, out-of-range coordinates, an image
	// that cannot be embedded).
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError maps internal package errors onto the facade's stable
// error surface so callers depend on this package only.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var rf *engine.ErrRecognitionFailed
	if errors.As(err, &rf) {
		return fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}

	var ve *engine.ErrValidation
	if errors.As(err, &ve) {
		return fmt.Errorf("%w: %w", ErrInvalidFeedback, err)
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	if errors.Is(err, index.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	return err
}
