// Package embed defines the embedding provider contract.
//
// The engine treats image-to-vector inference as an opaque, potentially
// slow, external function: the model runtime (CLIP or otherwise) lives
// behind this interface and is never part of the engine itself.
package embed

import (
	"context"
	"errors"

	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// ErrInvalidImage indicates undecodable image input. It is a caller error
// and surfaces to the user, unlike transient provider failures.
var ErrInvalidImage = errors.New("invalid image")

// Provider produces a fixed-length embedding vector for image bytes.
//
// Implementations may block on network or heavy compute; they must honor
// ctx cancellation. The engine performs no internal retries.
type Provider interface {
	// Embed returns the embedding vector for the image bytes.
	// It fails with ErrInvalidImage on undecodable input.
	Embed(ctx context.Context, image []byte) (model.Vector, error)

	// Dimension returns the fixed width of produced vectors.
	Dimension() int
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	Fn  func(ctx context.Context, image []byte) (model.Vector, error)
	Dim int
}

// Embed implements Provider.
func (p ProviderFunc) Embed(ctx context.Context, image []byte) (model.Vector, error) {
	return p.Fn(ctx, image)
}

// Dimension implements Provider.
func (p ProviderFunc) Dimension() int { return p.Dim }
