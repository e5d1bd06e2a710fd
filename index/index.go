package index

import (
	"errors"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/VijetHegde604/GeoGenie-backend/model"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// It signals a configuration bug: in a correctly wired deployment the
// embedding provider and the index always agree on dimensionality.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

// Error returns the error message for an invalid dimension.
func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ValidateDimension checks a configured dimension at construction time.
func ValidateDimension(dimension int) error {
	if dimension <= 0 {
		return &ErrInvalidDimension{Dimension: dimension}
	}
	return nil
}

// SearchResult represents a single query hit.
type SearchResult struct {
	// ID is the identifier of the matched entry.
	ID model.EntryID

	// LandmarkID is the landmark the matched entry belongs to.
	LandmarkID model.LandmarkID

	// Score is the cosine similarity between the query vector and the
	// entry vector, in [-1,1].
	Score float32
}

// FilterFunc restricts a query to entries for which it returns true.
// A nil FilterFunc admits every entry.
type FilterFunc func(id model.EntryID) bool

// Index is a vector index over immutable entries.
//
// Implementations must support concurrent readers and a concurrent writer:
// queries observe either the pre- or post-insert state, never a partially
// inserted entry.
type Index interface {
	// Insert appends one entry and returns its assigned EntryID.
	// The ID field of e is ignored; IDs are dense and assigned in
	// insertion order.
	Insert(e model.Entry) (model.EntryID, error)

	// Query returns up to k entries ordered by descending similarity.
	// Ties are broken by insertion order (earlier entry wins). An empty
	// index yields an empty result, not an error.
	Query(q model.Vector, k int) ([]SearchResult, error)

	// QueryFiltered is Query restricted by a filter.
	QueryFiltered(q model.Vector, k int, filter FilterFunc) ([]SearchResult, error)

	// Size returns the number of stored entries.
	Size() int

	// Dimension returns the fixed vector dimensionality.
	Dimension() int

	// EntriesForLandmark returns a copy of the posting list (entry IDs)
	// backing the given landmark.
	EntriesForLandmark(id model.LandmarkID) *roaring.Bitmap

	// WriteTo serializes the index entries as a binary stream.
	WriteTo(w io.Writer) (int64, error)

	// ReadFrom replaces the index contents from a binary stream produced
	// by WriteTo. Dimensionality must match the configured dimension.
	ReadFrom(r io.Reader) (int64, error)
}
