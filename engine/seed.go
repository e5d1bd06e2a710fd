package engine

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// SeedItem is one reference landmark for bulk loading. Either Vector or
// Image must be set; a present Vector wins and Image is ignored.
type SeedItem struct {
	// Name is the landmark display name.
	Name string

	// Coordinates optionally position the landmark.
	Coordinates *model.LatLng

	// Vector is a precomputed embedding.
	Vector model.Vector

	// Image is embedded through the provider when Vector is absent.
	Image []byte
}

// Seed bulk-loads reference landmarks into the catalog and index.
//
// Missing embeddings are computed concurrently, bounded by
// Options.SeedConcurrency. Catalog upserts and index inserts then run
// sequentially in input order, so entry IDs (and with them query
// tie-breaking) are deterministic for a given input. Any embedding
// failure aborts the whole load before anything is inserted.
func (e *Engine) Seed(ctx context.Context, items []SeedItem) (int, error) {
	vectors := make([]model.Vector, len(items))

	g, gctx := errgroup.WithContext(ctx)
	limit := e.opts.SeedConcurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)

	for i := range items {
		if items[i].Vector != nil {
			vectors[i] = items[i].Vector
			continue
		}

		g.Go(func() error {
			vec, err := e.embedder.Embed(gctx, items[i].Image)
			if err != nil {
				return fmt.Errorf("seed item %d (%s): %w", i, items[i].Name, err)
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	inserted := 0
	for i, item := range items {
		landmarkID, err := e.cat.Upsert(item.Name, item.Coordinates)
		if err != nil {
			return inserted, fmt.Errorf("seed item %d: %w", i, err)
		}

		if _, err := e.idx.Insert(model.Entry{
			LandmarkID: landmarkID,
			Source:     model.SourceSeed,
			Vector:     vectors[i],
		}); err != nil {
			return inserted, fmt.Errorf("seed item %d (%s): %w", i, item.Name, err)
		}
		inserted++
	}

	e.logger.InfoContext(ctx, "seed completed",
		"items", len(items),
		"entries", e.idx.Size(),
		"landmarks", e.cat.Len(),
	)

	return inserted, nil
}
