package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"geogenie.yaml",
	"geogenie.yml",
	"/etc/geogenie/config.yaml",
	"/etc/geogenie/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "GEOGENIE_CONFIG"

// envPrefix is stripped from environment variables before mapping them to
// config paths: GEOGENIE_ENGINE_ACCEPT_THRESHOLD -> engine.accept_threshold.
const envPrefix = "GEOGENIE_"

// Default returns a Config with all default values. Defaults are applied
// first, then overridden by the config file and environment variables.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Type:       "flat",
			Dimension:  512, // CLIP ViT-B/32
			Partitions: 16,
			NProbe:     4,
		},
		Engine: EngineConfig{
			TopK:            5,
			AcceptThreshold: 0.6,
			SeedConcurrency: 0, // runtime.NumCPU()
		},
		Geocoder: GeocoderConfig{
			Enabled:                 true,
			BaseURL:                 "https://nominatim.openstreetmap.org/reverse",
			UserAgent:               "GeoGenie/1.0",
			RequestsPerSecond:       1, // Nominatim usage policy
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Snapshot: SnapshotConfig{
			Path:        "geogenie.ggs",
			Backend:     "local",
			Bucket:      "",
			Prefix:      "geogenie/",
			Codec:       "go-json",
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration using koanf v2 with layered sources:
//  1. Defaults: built-in values from Default
//  2. Config file: optional YAML file (if found)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - GEOGENIE_INDEX_DIMENSION -> index.dimension
//   - GEOGENIE_ENGINE_ACCEPT_THRESHOLD -> engine.accept_threshold
//   - GEOGENIE_GEOCODER_BASE_URL -> geocoder.base_url
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		"index_type":       "index.type",
		"index_dimension":  "index.dimension",
		"index_partitions": "index.partitions",
		"index_nprobe":     "index.nprobe",

		"engine_top_k":            "engine.top_k",
		"engine_accept_threshold": "engine.accept_threshold",
		"engine_seed_concurrency": "engine.seed_concurrency",

		"geocoder_enabled":             "geocoder.enabled",
		"geocoder_base_url":            "geocoder.base_url",
		"geocoder_user_agent":          "geocoder.user_agent",
		"geocoder_requests_per_second": "geocoder.requests_per_second",
		"geocoder_breaker_failures":    "geocoder.breaker_failure_threshold",
		"geocoder_breaker_timeout":     "geocoder.breaker_timeout",

		"snapshot_path":        "snapshot.path",
		"snapshot_backend":     "snapshot.backend",
		"snapshot_bucket":      "snapshot.bucket",
		"snapshot_prefix":      "snapshot.prefix",
		"snapshot_codec":       "snapshot.codec",
		"snapshot_compression": "snapshot.compression",

		"log_level":  "logging.level",
		"log_format": "logging.format",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables never
	// pollute the config.
	return ""
}
