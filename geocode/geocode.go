// Package geocode defines the reverse-geocoding adapter contract and a
// Nominatim-backed implementation.
//
// Reverse geocoding is a rate-limited, potentially failing collaborator.
// The recognition pipeline absorbs every failure from this package and
// falls through to visual search; nothing here is ever surfaced to callers.
package geocode

import (
	"context"
	"errors"
)

// ErrAdapterUnavailable indicates the geocoding backend could not serve the
// request (network error, timeout, rate limit, open circuit breaker).
var ErrAdapterUnavailable = errors.New("geocoding adapter unavailable")

// Adapter resolves coordinates to a human-readable place name.
type Adapter interface {
	// ReverseGeocode returns the place name for the coordinates.
	// An empty string with a nil error means "no match". Failures are
	// reported as errors wrapping ErrAdapterUnavailable.
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, lat, lng float64) (string, error)

// ReverseGeocode implements Adapter.
func (f AdapterFunc) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	return f(ctx, lat, lng)
}
