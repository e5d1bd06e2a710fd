package model

import (
	"fmt"
	"time"
)

// EntryID is the dense identifier of an index entry. IDs are assigned in
// insertion order, which makes them the deterministic tie-break order for
// equal similarity scores (lower ID wins).
type EntryID uint32

// LandmarkID is the stable identifier of a landmark catalog entry.
type LandmarkID uint64

// Vector is a fixed-length embedding vector. Dimensionality is set at index
// construction time and is invariant for the lifetime of the index.
type Vector = []float32

// EntrySource records how an index entry entered the index.
type EntrySource uint8

const (
	// SourceSeed marks entries created by the initial database build.
	SourceSeed EntrySource = iota
	// SourceFeedback marks entries created by user corrections.
	SourceFeedback
)

// String returns a string representation of the EntrySource.
func (s EntrySource) String() string {
	switch s {
	case SourceSeed:
		return "seed"
	case SourceFeedback:
		return "feedback"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Entry is one reference photo in the vector index. Entries are immutable
// once inserted; corrections create new entries, they never rewrite vectors.
type Entry struct {
	ID         EntryID
	LandmarkID LandmarkID
	Source     EntrySource
	Vector     Vector
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are well-formed
// (latitude in [-90,90], longitude in [-180,180]).
func (c LatLng) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// String returns a "lat,lng" representation.
func (c LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// ResultSource tells which path of the recognition pipeline produced a result.
type ResultSource uint8

const (
	// ResultNone means no acceptable match was found.
	ResultNone ResultSource = iota
	// ResultGeo means the result came from reverse geocoding.
	ResultGeo
	// ResultVisual means the result came from the vector index.
	ResultVisual
)

// String returns a string representation of the ResultSource.
func (s ResultSource) String() string {
	switch s {
	case ResultNone:
		return "none"
	case ResultGeo:
		return "geo"
	case ResultVisual:
		return "visual"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Result is the outcome of one recognition request. It is transient and
// never persisted by the engine.
type Result struct {
	// PlaceName is the recognized place, empty when Source is ResultNone.
	PlaceName string
	// Confidence is in [0,1]. For geo results it is always 1.0 (reverse
	// geocoding is treated as authoritative). For visual results it is
	// derived monotonically from the winning cosine similarity.
	Confidence float64
	// Source tells which pipeline path produced the result.
	Source ResultSource
	// Coordinates are the landmark coordinates when known.
	Coordinates *LatLng
}

// Matched reports whether the result carries a positive identification.
func (r Result) Matched() bool {
	return r.Source != ResultNone
}

// LandmarkInfo is the catalog view of a landmark returned to callers.
type LandmarkInfo struct {
	ID          LandmarkID `json:"id"`
	DisplayName string     `json:"display_name"`
	Coordinates *LatLng    `json:"coordinates,omitempty"`
	EntryCount  int        `json:"entry_count"`
	LastUpdated time.Time  `json:"last_updated"`
}
