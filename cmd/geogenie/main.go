// Command geogenie builds, inspects and queries landmark snapshots.
//
// The CLI works with precomputed embedding vectors (the embedding model
// runs out of process); the serving path wires a real embed.Provider
// instead.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	geogenie "github.com/VijetHegde604/GeoGenie-backend"
	"github.com/VijetHegde604/GeoGenie-backend/config"
	"github.com/VijetHegde604/GeoGenie-backend/engine"
	"github.com/VijetHegde604/GeoGenie-backend/geocode"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

func main() {
	cmd := &cli.Command{
		Name:  "geogenie",
		Usage: "Landmark recognition engine tooling",
		Commands: []*cli.Command{
			buildCommand(),
			queryCommand(),
			statsCommand(),
			landmarksCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func configFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Config file path (defaults to the standard search paths)",
		Sources:     cli.EnvVars(config.ConfigPathEnvVar),
		Destination: dst,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// seedRecord is one line of the JSONL seed input.
type seedRecord struct {
	Name      string       `json:"name"`
	Latitude  *float64     `json:"latitude,omitempty"`
	Longitude *float64     `json:"longitude,omitempty"`
	Vector    model.Vector `json:"vector"`
}

func newEngine(cfg *config.Config) (*geogenie.GeoGenie, error) {
	logger := newLogger(cfg.Logging)

	var geocoder geocode.Adapter
	if cfg.Geocoder.Enabled {
		geocoder = geocode.NewNominatim(func(o *geocode.NominatimOptions) {
			o.BaseURL = cfg.Geocoder.BaseURL
			o.UserAgent = cfg.Geocoder.UserAgent
			o.RequestsPerSecond = cfg.Geocoder.RequestsPerSecond
			o.BreakerFailureThreshold = uint32(cfg.Geocoder.BreakerFailureThreshold)
			o.BreakerTimeout = cfg.Geocoder.BreakerTimeout
		})
	}

	// The CLI only handles precomputed vectors.
	embedder := noEmbedder{dim: cfg.Index.Dimension}

	if cfg.Index.Type == "ivf" {
		return geogenie.IVF(cfg.Index.Dimension).
			Partitions(cfg.Index.Partitions).
			NProbe(cfg.Index.NProbe).
			TopK(cfg.Engine.TopK).
			AcceptThreshold(cfg.Engine.AcceptThreshold).
			SeedConcurrency(cfg.Engine.SeedConcurrency).
			Embedder(embedder).
			Geocoder(geocoder).
			Logger(logger).
			Build()
	}

	return geogenie.Flat(cfg.Index.Dimension).
		TopK(cfg.Engine.TopK).
		AcceptThreshold(cfg.Engine.AcceptThreshold).
		SeedConcurrency(cfg.Engine.SeedConcurrency).
		Embedder(embedder).
		Geocoder(geocoder).
		Logger(logger).
		Build()
}

func newLogger(cfg config.LoggingConfig) *geogenie.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "text" {
		return geogenie.NewTextLogger(level)
	}
	return geogenie.NewJSONLogger(level)
}

// noEmbedder satisfies embed.Provider for vector-only workflows.
type noEmbedder struct {
	dim int
}

func (e noEmbedder) Embed(ctx context.Context, image []byte) (model.Vector, error) {
	return nil, fmt.Errorf("no embedding provider configured; supply precomputed vectors")
}

func (e noEmbedder) Dimension() int { return e.dim }

func buildCommand() *cli.Command {
	var (
		configPath string
		input      string
		output     string
	)

	return &cli.Command{
		Name:  "build",
		Usage: "Build a snapshot from a JSONL seed file",
		Flags: []cli.Flag{
			configFlag(&configPath),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "JSONL file with one landmark per line",
				Required:    true,
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Snapshot output path (defaults to snapshot.path from config)",
				Destination: &output,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.Snapshot.Path
			}

			gg, err := newEngine(cfg)
			if err != nil {
				return err
			}
			defer gg.Close()

			items, err := readSeedFile(input)
			if err != nil {
				return err
			}

			inserted, err := gg.Seed(ctx, items)
			if err != nil {
				return err
			}

			if err := gg.SaveToFile(output); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Seeded %d entries, snapshot written to %s\n", inserted, output)
			return nil
		},
	}
}

func readSeedFile(path string) ([]engine.SeedItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []engine.SeedItem

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec seedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("seed file line %d: %w", line, err)
		}
		if rec.Name == "" {
			return nil, fmt.Errorf("seed file line %d: missing name", line)
		}
		if len(rec.Vector) == 0 {
			return nil, fmt.Errorf("seed file line %d (%s): missing vector", line, rec.Name)
		}

		item := engine.SeedItem{
			Name:   rec.Name,
			Vector: rec.Vector,
		}
		if rec.Latitude != nil && rec.Longitude != nil {
			item.Coordinates = &model.LatLng{
				Latitude:  *rec.Latitude,
				Longitude: *rec.Longitude,
			}
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func queryCommand() *cli.Command {
	var (
		configPath string
		snapshot   string
		vectorFile string
		lat        float64
		lng        float64
		hasCoords  bool
	)

	return &cli.Command{
		Name:  "query",
		Usage: "Recognize a landmark from a precomputed vector and/or coordinates",
		Flags: []cli.Flag{
			configFlag(&configPath),
			&cli.StringFlag{
				Name:        "snapshot",
				Aliases:     []string{"s"},
				Usage:       "Snapshot to load (defaults to snapshot.path from config)",
				Destination: &snapshot,
			},
			&cli.StringFlag{
				Name:        "vector",
				Aliases:     []string{"v"},
				Usage:       "JSON file containing the query embedding",
				Destination: &vectorFile,
			},
			&cli.FloatFlag{
				Name:        "lat",
				Usage:       "Latitude of the photograph",
				Destination: &lat,
			},
			&cli.FloatFlag{
				Name:        "lng",
				Usage:       "Longitude of the photograph",
				Destination: &lng,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if snapshot == "" {
				snapshot = cfg.Snapshot.Path
			}
			hasCoords = c.IsSet("lat") && c.IsSet("lng")
			if vectorFile == "" && !hasCoords {
				return fmt.Errorf("either --vector or --lat/--lng is required")
			}

			gg, err := newEngine(cfg)
			if err != nil {
				return err
			}
			defer gg.Close()

			if err := gg.LoadFromFile(snapshot); err != nil {
				return err
			}

			var coords *model.LatLng
			if hasCoords {
				coords = &model.LatLng{Latitude: lat, Longitude: lng}
			}

			res, err := queryOnce(ctx, gg, vectorFile, coords)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func queryOnce(ctx context.Context, gg *geogenie.GeoGenie, vectorFile string, coords *model.LatLng) (model.Result, error) {
	if vectorFile == "" {
		// Geo-only request: the embedder is never reached when geocoding
		// hits, and a visual fallback without a vector is an error anyway.
		return gg.Recognize(ctx, nil, coords)
	}

	data, err := os.ReadFile(vectorFile)
	if err != nil {
		return model.Result{}, err
	}

	var vec model.Vector
	if err := json.Unmarshal(data, &vec); err != nil {
		return model.Result{}, fmt.Errorf("vector file %s: %w", vectorFile, err)
	}

	// Route the precomputed vector through feedback-style direct matching:
	// recognize against the index without an embedding provider.
	return gg.RecognizeVector(ctx, vec, coords)
}

func statsCommand() *cli.Command {
	var (
		configPath string
		snapshot   string
	)

	return &cli.Command{
		Name:  "stats",
		Usage: "Print snapshot statistics",
		Flags: []cli.Flag{
			configFlag(&configPath),
			&cli.StringFlag{
				Name:        "snapshot",
				Aliases:     []string{"s"},
				Usage:       "Snapshot to load (defaults to snapshot.path from config)",
				Destination: &snapshot,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if snapshot == "" {
				snapshot = cfg.Snapshot.Path
			}

			gg, err := newEngine(cfg)
			if err != nil {
				return err
			}
			defer gg.Close()

			if err := gg.LoadFromFile(snapshot); err != nil {
				return err
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(gg.Stats())
		},
	}
}

func landmarksCommand() *cli.Command {
	var (
		configPath string
		snapshot   string
	)

	return &cli.Command{
		Name:  "landmarks",
		Usage: "List the landmarks in a snapshot",
		Flags: []cli.Flag{
			configFlag(&configPath),
			&cli.StringFlag{
				Name:        "snapshot",
				Aliases:     []string{"s"},
				Usage:       "Snapshot to load (defaults to snapshot.path from config)",
				Destination: &snapshot,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if snapshot == "" {
				snapshot = cfg.Snapshot.Path
			}

			gg, err := newEngine(cfg)
			if err != nil {
				return err
			}
			defer gg.Close()

			if err := gg.LoadFromFile(snapshot); err != nil {
				return err
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(gg.Landmarks())
		},
	}
}
