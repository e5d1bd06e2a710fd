package engine

import (
	"log/slog"
)

// Options contains configuration options for the engine.
type Options struct {
	// TopK is the number of index neighbors fetched per visual attempt
	// before aggregation by landmark.
	TopK int

	// AcceptThreshold is the minimum confidence for a visual match to be
	// accepted. Below it the result is indistinguishable from "no match"
	// (precision over recall). This is the single most consequential
	// tunable and is always injected from configuration, never assumed.
	AcceptThreshold float64

	// SeedConcurrency bounds parallel embedding during Seed.
	// Zero means the number of CPUs.
	SeedConcurrency int

	// Logger receives structured operation logs. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the engine.
// AcceptThreshold mirrors the 0.6 the reference deployment converged on for
// CLIP ViT-B/32 embeddings.
var DefaultOptions = Options{
	TopK:            5,
	AcceptThreshold: 0.6,
}
