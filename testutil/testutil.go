// Package testutil provides deterministic fixtures for engine tests: seeded
// random unit vectors, vectors with a known cosine similarity to a basis
// axis, and fake embedding/geocoding collaborators with call counters.
package testutil

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/VijetHegde604/GeoGenie-backend/distance"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// NewRand returns a seeded deterministic random source.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// RandomUnitVector returns a random vector of unit length.
func RandomUnitVector(rng *rand.Rand, dim int) model.Vector {
	v := make(model.Vector, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	distance.NormalizeL2InPlace(v)
	return v
}

// BasisVector returns the unit vector along the given axis.
func BasisVector(dim, axis int) model.Vector {
	v := make(model.Vector, dim)
	v[axis] = 1
	return v
}

// VectorWithSimilarity returns a unit vector whose cosine similarity to
// BasisVector(dim, axis) is exactly sim. The remainder is placed on the
// next axis, so callers can build fixtures with known scores
// (e.g. 0.95, 0.80, 0.50) and assert exact confidence ordering.
func VectorWithSimilarity(dim, axis int, sim float64) model.Vector {
	if sim < -1 || sim > 1 {
		panic(fmt.Sprintf("testutil: similarity %g out of [-1,1]", sim))
	}
	v := make(model.Vector, dim)
	v[axis] = float32(sim)
	v[(axis+1)%dim] = float32(math.Sqrt(1 - sim*sim))
	return v
}

// FakeEmbedder is an embed.Provider backed by a fixed image->vector table.
// Unknown images produce an error. The call counter lets tests assert that
// the geo short-circuit never embeds.
type FakeEmbedder struct {
	Dim int

	// Err, when set, is returned by every Embed call.
	Err error

	mu      sync.Mutex
	vectors map[string]model.Vector
	calls   atomic.Int64
}

// NewFakeEmbedder creates an empty fake with the given dimensionality.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{
		Dim:     dim,
		vectors: make(map[string]model.Vector),
	}
}

// Register maps an image payload to a vector.
func (f *FakeEmbedder) Register(image []byte, v model.Vector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[string(image)] = v
}

// Embed implements embed.Provider.
func (f *FakeEmbedder) Embed(ctx context.Context, image []byte) (model.Vector, error) {
	f.calls.Add(1)

	if f.Err != nil {
		return nil, f.Err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vectors[string(image)]
	if !ok {
		return nil, fmt.Errorf("testutil: unregistered image %q", image)
	}
	return v, nil
}

// Dimension implements embed.Provider.
func (f *FakeEmbedder) Dimension() int { return f.Dim }

// Calls returns the number of Embed invocations.
func (f *FakeEmbedder) Calls() int64 { return f.calls.Load() }

// FakeGeocoder is a geocode.Adapter backed by a fixed coordinate->name
// table. Coordinates without an entry yield a miss (empty name, nil error).
type FakeGeocoder struct {
	// Err, when set, is returned by every ReverseGeocode call.
	Err error

	mu     sync.Mutex
	places map[string]string
	calls  atomic.Int64
}

// NewFakeGeocoder creates an empty fake.
func NewFakeGeocoder() *FakeGeocoder {
	return &FakeGeocoder{
		places: make(map[string]string),
	}
}

func coordKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// Register maps coordinates to a place name.
func (f *FakeGeocoder) Register(lat, lng float64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places[coordKey(lat, lng)] = name
}

// ReverseGeocode implements geocode.Adapter.
func (f *FakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	f.calls.Add(1)

	if f.Err != nil {
		return "", f.Err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.places[coordKey(lat, lng)], nil
}

// Calls returns the number of ReverseGeocode invocations.
func (f *FakeGeocoder) Calls() int64 { return f.calls.Load() }
