// Package config loads GeoGenie configuration with layered precedence:
// built-in defaults, then an optional YAML file, then environment
// variables. The acceptance threshold deliberately has no compiled-in
// magic value beyond the documented default; deployments tune it here.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for a GeoGenie deployment.
type Config struct {
	Index    IndexConfig    `koanf:"index"`
	Engine   EngineConfig   `koanf:"engine"`
	Geocoder GeocoderConfig `koanf:"geocoder"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// IndexConfig selects and sizes the vector index.
type IndexConfig struct {
	// Type is "flat" (exact) or "ivf" (approximate).
	Type string `koanf:"type"`

	// Dimension is the embedding dimensionality. Must match the embedding
	// provider exactly.
	Dimension int `koanf:"dimension"`

	// Partitions is the number of IVF partitions. Ignored for flat.
	Partitions int `koanf:"partitions"`

	// NProbe is the number of IVF partitions probed per query.
	// Ignored for flat.
	NProbe int `koanf:"nprobe"`
}

// EngineConfig tunes the recognition pipeline.
type EngineConfig struct {
	// TopK is the number of neighbors fetched per visual attempt.
	TopK int `koanf:"top_k"`

	// AcceptThreshold is the minimum confidence for a visual match.
	AcceptThreshold float64 `koanf:"accept_threshold"`

	// SeedConcurrency bounds parallel embedding during bulk seeding.
	// Zero means the number of CPUs.
	SeedConcurrency int `koanf:"seed_concurrency"`
}

// GeocoderConfig configures the Nominatim reverse-geocoding adapter.
type GeocoderConfig struct {
	// Enabled toggles the GPS-first stage entirely.
	Enabled bool `koanf:"enabled"`

	// BaseURL is the Nominatim endpoint.
	BaseURL string `koanf:"base_url"`

	// UserAgent identifies this deployment, required by the Nominatim
	// usage policy.
	UserAgent string `koanf:"user_agent"`

	// RequestsPerSecond caps outbound request rate.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the circuit breaker.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// SnapshotConfig configures snapshot persistence.
type SnapshotConfig struct {
	// Path is the local snapshot file. Used when Backend is "local".
	Path string `koanf:"path"`

	// Backend is "local", "s3", "minio" or "memory".
	Backend string `koanf:"backend"`

	// Bucket is the object storage bucket for s3/minio backends.
	Bucket string `koanf:"bucket"`

	// Prefix is the object key prefix for s3/minio backends.
	Prefix string `koanf:"prefix"`

	// Codec names the payload codec ("go-json" or "json").
	Codec string `koanf:"codec"`

	// Compression names the section compression ("zstd", "lz4" or "none").
	Compression string `koanf:"compression"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `koanf:"level"`

	// Format is "json" or "text".
	Format string `koanf:"format"`
}

// Validate checks the configuration for values that would produce a broken
// engine.
func (c *Config) Validate() error {
	switch c.Index.Type {
	case "flat", "ivf":
	default:
		return fmt.Errorf("config: unknown index type %q (want flat or ivf)", c.Index.Type)
	}
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("config: index dimension must be positive, got %d", c.Index.Dimension)
	}
	if c.Index.Type == "ivf" {
		if c.Index.Partitions <= 0 {
			return fmt.Errorf("config: ivf partitions must be positive, got %d", c.Index.Partitions)
		}
		if c.Index.NProbe <= 0 || c.Index.NProbe > c.Index.Partitions {
			return fmt.Errorf("config: ivf nprobe must be in [1, partitions], got %d", c.Index.NProbe)
		}
	}

	if c.Engine.TopK <= 0 {
		return fmt.Errorf("config: top_k must be positive, got %d", c.Engine.TopK)
	}
	if c.Engine.AcceptThreshold < 0 || c.Engine.AcceptThreshold > 1 {
		return fmt.Errorf("config: accept_threshold must be in [0,1], got %g", c.Engine.AcceptThreshold)
	}

	if c.Geocoder.Enabled {
		if c.Geocoder.BaseURL == "" {
			return fmt.Errorf("config: geocoder enabled without base_url")
		}
		if c.Geocoder.RequestsPerSecond <= 0 {
			return fmt.Errorf("config: geocoder requests_per_second must be positive, got %g", c.Geocoder.RequestsPerSecond)
		}
	}

	switch c.Snapshot.Backend {
	case "local", "s3", "minio", "memory":
	default:
		return fmt.Errorf("config: unknown snapshot backend %q", c.Snapshot.Backend)
	}
	if (c.Snapshot.Backend == "s3" || c.Snapshot.Backend == "minio") && c.Snapshot.Bucket == "" {
		return fmt.Errorf("config: snapshot backend %q requires a bucket", c.Snapshot.Backend)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}

	return nil
}
