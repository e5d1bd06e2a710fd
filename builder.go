// Package geogenie provides a landmark-recognition engine for Go.
//
// This file implements index-specific fluent builder APIs for creating and
// configuring GeoGenie instances. Builders are immutable - each method
// returns a new builder with the updated configuration.
package geogenie

import (
	"github.com/VijetHegde604/GeoGenie-backend/catalog"
	"github.com/VijetHegde604/GeoGenie-backend/embed"
	"github.com/VijetHegde604/GeoGenie-backend/engine"
	"github.com/VijetHegde604/GeoGenie-backend/geocode"
	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/index/flat"
	"github.com/VijetHegde604/GeoGenie-backend/index/ivf"
)

// =============================================================================
// Flat Builder (Immutable)
// =============================================================================

// Flat creates a new flat (exact search) builder with the specified
// dimension. Flat scans every entry per query and is the right choice for
// catalogs up to the low hundreds of thousands of entries.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration.
//
// Example:
//
//	gg, err := geogenie.Flat(512).
//	    Embedder(clipProvider).
//	    Geocoder(nominatim).
//	    AcceptThreshold(0.6).
//	    Build()
func Flat(dimension int) FlatBuilder {
	return FlatBuilder{
		dimension:       dimension,
		topK:            engine.DefaultOptions.TopK,
		acceptThreshold: engine.DefaultOptions.AcceptThreshold,
	}
}

// FlatBuilder is an immutable fluent builder for creating flat-index
// GeoGenie instances. Each method returns a new builder with the updated
// configuration.
type FlatBuilder struct {
	dimension       int
	topK            int
	acceptThreshold float64
	seedConcurrency int
	embedder        embed.Provider
	geocoder        geocode.Adapter
	logger          *Logger
	metrics         MetricsCollector
}

// TopK sets the number of index neighbors fetched per visual attempt.
// Default: 5.
func (b FlatBuilder) TopK(k int) FlatBuilder {
	b.topK = k
	return b
}

// AcceptThreshold sets the minimum confidence for a visual match.
// Default: 0.6.
func (b FlatBuilder) AcceptThreshold(t float64) FlatBuilder {
	b.acceptThreshold = t
	return b
}

// SeedConcurrency bounds parallel embedding during Seed.
// Default: number of CPUs.
func (b FlatBuilder) SeedConcurrency(n int) FlatBuilder {
	b.seedConcurrency = n
	return b
}

// Embedder sets the embedding provider. Required.
func (b FlatBuilder) Embedder(p embed.Provider) FlatBuilder {
	b.embedder = p
	return b
}

// Geocoder sets the reverse-geocoding adapter. Optional; without one every
// request goes straight to the visual attempt.
func (b FlatBuilder) Geocoder(a geocode.Adapter) FlatBuilder {
	b.geocoder = a
	return b
}

// Logger sets the structured logger for operation tracing.
func (b FlatBuilder) Logger(l *Logger) FlatBuilder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b FlatBuilder) Metrics(mc MetricsCollector) FlatBuilder {
	b.metrics = mc
	return b
}

// Build creates the flat-index GeoGenie instance.
func (b FlatBuilder) Build() (*GeoGenie, error) {
	idx, err := flat.New(func(o *flat.Options) {
		o.Dimension = b.dimension
	})
	if err != nil {
		return nil, translateError(err)
	}

	return assemble(idx, b.embedder, b.geocoder, b.logger, b.metrics,
		b.topK, b.acceptThreshold, b.seedConcurrency)
}

// MustBuild creates the GeoGenie instance, panicking on error.
func (b FlatBuilder) MustBuild() *GeoGenie {
	gg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return gg
}

// =============================================================================
// IVF Builder (Immutable)
// =============================================================================

// IVF creates a new inverted-file (approximate search) builder with the
// specified dimension. IVF probes a subset of k-means partitions per query,
// trading a bounded recall reduction for sub-linear scan cost.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration.
//
// Example:
//
//	gg, err := geogenie.IVF(512).
//	    Partitions(64).
//	    NProbe(8).
//	    Embedder(clipProvider).
//	    Build()
func IVF(dimension int) IVFBuilder {
	return IVFBuilder{
		dimension:       dimension,
		topK:            engine.DefaultOptions.TopK,
		acceptThreshold: engine.DefaultOptions.AcceptThreshold,
		numPartitions:   ivf.DefaultOptions.NumPartitions,
		nprobe:          ivf.DefaultOptions.NProbe,
		seed:            ivf.DefaultOptions.Seed,
	}
}

// IVFBuilder is an immutable fluent builder for creating IVF-index GeoGenie
// instances. Each method returns a new builder with the updated
// configuration.
type IVFBuilder struct {
	dimension       int
	topK            int
	acceptThreshold float64
	seedConcurrency int
	numPartitions   int
	nprobe          int
	seed            int64
	embedder        embed.Provider
	geocoder        geocode.Adapter
	logger          *Logger
	metrics         MetricsCollector
}

// Partitions sets the number of k-means partitions.
// Default: 16. Recommended: sqrt of the expected entry count.
func (b IVFBuilder) Partitions(n int) IVFBuilder {
	b.numPartitions = n
	return b
}

// NProbe sets the number of partitions probed per query.
// Higher values improve recall but slow down search.
// Default: 4.
func (b IVFBuilder) NProbe(n int) IVFBuilder {
	b.nprobe = n
	return b
}

// RandomSeed sets the seed for deterministic partition training.
func (b IVFBuilder) RandomSeed(seed int64) IVFBuilder {
	b.seed = seed
	return b
}

// TopK sets the number of index neighbors fetched per visual attempt.
// Default: 5.
func (b IVFBuilder) TopK(k int) IVFBuilder {
	b.topK = k
	return b
}

// AcceptThreshold sets the minimum confidence for a visual match.
// Default: 0.6.
func (b IVFBuilder) AcceptThreshold(t float64) IVFBuilder {
	b.acceptThreshold = t
	return b
}

// SeedConcurrency bounds parallel embedding during Seed.
// Default: number of CPUs.
func (b IVFBuilder) SeedConcurrency(n int) IVFBuilder {
	b.seedConcurrency = n
	return b
}

// Embedder sets the embedding provider. Required.
func (b IVFBuilder) Embedder(p embed.Provider) IVFBuilder {
	b.embedder = p
	return b
}

// Geocoder sets the reverse-geocoding adapter. Optional.
func (b IVFBuilder) Geocoder(a geocode.Adapter) IVFBuilder {
	b.geocoder = a
	return b
}

// Logger sets the structured logger for operation tracing.
func (b IVFBuilder) Logger(l *Logger) IVFBuilder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b IVFBuilder) Metrics(mc MetricsCollector) IVFBuilder {
	b.metrics = mc
	return b
}

// Build creates the IVF-index GeoGenie instance.
func (b IVFBuilder) Build() (*GeoGenie, error) {
	idx, err := ivf.New(func(o *ivf.Options) {
		o.Dimension = b.dimension
		o.NumPartitions = b.numPartitions
		o.NProbe = b.nprobe
		o.Seed = b.seed
	})
	if err != nil {
		return nil, translateError(err)
	}

	return assemble(idx, b.embedder, b.geocoder, b.logger, b.metrics,
		b.topK, b.acceptThreshold, b.seedConcurrency)
}

// MustBuild creates the GeoGenie instance, panicking on error.
func (b IVFBuilder) MustBuild() *GeoGenie {
	gg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return gg
}

// assemble wires an index into a full GeoGenie instance.
func assemble(idx index.Index, embedder embed.Provider, geocoder geocode.Adapter, logger *Logger, metrics MetricsCollector, topK int, threshold float64, seedConcurrency int) (*GeoGenie, error) {
	if logger == nil {
		logger = NoopLogger()
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	eng := engine.New(idx, catalog.New(), embedder, geocoder, func(o *engine.Options) {
		o.TopK = topK
		o.AcceptThreshold = threshold
		o.SeedConcurrency = seedConcurrency
		o.Logger = logger.Logger
	})

	return &GeoGenie{
		eng:     eng,
		logger:  logger,
		metrics: metrics,
	}, nil
}
