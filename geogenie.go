// Package geogenie provides a landmark-recognition engine for Go.
//
// GeoGenie identifies landmarks from photographs using a GPS-first,
// vision-fallback pipeline:
//
//   - When the request carries GPS coordinates, reverse geocoding resolves
//     them to a place name. A hit is authoritative (confidence 1.0) and the
//     image is never embedded.
//   - Otherwise the image is embedded and matched against a cosine
//     similarity vector index of reference landmarks, with an externally
//     configured acceptance threshold deciding between a match and
//     "no match".
//
// User corrections feed straight back into the index and are effective for
// the very next query.
//
// # Quick Start
//
// Create an engine with the fluent builder:
//
//	gg, err := geogenie.Flat(512).
//	    Embedder(clipProvider).
//	    Geocoder(geocode.NewNominatim()).
//	    AcceptThreshold(0.6).
//	    Build()
//	if err != nil {
//	    panic(err)
//	}
//	defer gg.Close()
//
// Recognize a photograph:
//
//	res, err := gg.Recognize(ctx, image, &model.LatLng{
//	    Latitude:  48.8584,
//	    Longitude: 2.2945,
//	})
//
// Submit a correction:
//
//	err = gg.SubmitFeedback(ctx, engine.Feedback{
//	    Image:         image,
//	    CorrectedName: "Eiffel Tower",
//	})
//
// # Index Selection
//
// Choose the right index for your catalog:
//   - Flat: exact search, right up to the low hundreds of thousands of
//     entries
//   - IVF: approximate search with partition probing for larger catalogs
//
// # Persistence
//
// The engine persists through explicit snapshots only:
//
//	err = gg.SaveToFile("snapshot.ggs")
//	err = gg.LoadFromFile("snapshot.ggs")
//
// Snapshots can also be published to object storage through the blobstore
// package (local disk, S3, MinIO, memory).
package geogenie

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/VijetHegde604/GeoGenie-backend/blobstore"
	"github.com/VijetHegde604/GeoGenie-backend/catalog"
	"github.com/VijetHegde604/GeoGenie-backend/engine"
	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// GeoGenie is a landmark-recognition engine combining reverse geocoding, a
// vector index of reference embeddings and a landmark catalog.
//
// All methods are safe for concurrent use.
type GeoGenie struct {
	eng     *engine.Engine
	logger  *Logger
	metrics MetricsCollector
}

// Recognize identifies the landmark shown in image. coords are optional
// caller-supplied GPS coordinates; when present and resolvable they
// short-circuit the visual pipeline.
//
// A result with Source == model.ResultNone means no landmark cleared the
// acceptance threshold; that is a successful request, not an error.
func (gg *GeoGenie) Recognize(ctx context.Context, image []byte, coords *model.LatLng) (model.Result, error) {
	start := time.Now()

	res, err := gg.eng.Recognize(ctx, engine.RecognizeRequest{
		Image:       image,
		Coordinates: coords,
	})
	duration := time.Since(start)
	err = translateError(err)

	gg.metrics.RecordRecognition(res.Source, duration, err)
	gg.logger.LogRecognize(ctx, res, duration, err)
	return res, err
}

// RecognizeVector is Recognize for callers that already hold an embedding
// (offline tooling, precomputed batches).
func (gg *GeoGenie) RecognizeVector(ctx context.Context, vec model.Vector, coords *model.LatLng) (model.Result, error) {
	start := time.Now()

	res, err := gg.eng.RecognizeVector(ctx, vec, coords)
	duration := time.Since(start)
	err = translateError(err)

	gg.metrics.RecordRecognition(res.Source, duration, err)
	gg.logger.LogRecognize(ctx, res, duration, err)
	return res, err
}

// SubmitFeedback incorporates a user correction. The corrected landmark is
// matchable by the very next Recognize call.
func (gg *GeoGenie) SubmitFeedback(ctx context.Context, fb engine.Feedback) error {
	start := time.Now()

	err := translateError(gg.eng.SubmitFeedback(ctx, fb))
	duration := time.Since(start)

	gg.metrics.RecordFeedback(duration, err)
	gg.logger.LogFeedback(ctx, fb.CorrectedName, duration, err)
	return err
}

// Seed bulk-loads reference landmarks. See engine.Engine.Seed for the
// concurrency and determinism contract.
func (gg *GeoGenie) Seed(ctx context.Context, items []engine.SeedItem) (int, error) {
	start := time.Now()

	inserted, err := gg.eng.Seed(ctx, items)
	duration := time.Since(start)
	err = translateError(err)

	gg.metrics.RecordSeed(inserted, duration, err)
	gg.logger.LogSeed(ctx, inserted, duration, err)
	return inserted, err
}

// Lookup returns the landmark registered under name, matching by
// case-normalized form.
func (gg *GeoGenie) Lookup(name string) (model.LandmarkInfo, bool) {
	e, ok := gg.eng.Catalog().ResolveName(name)
	if !ok {
		return model.LandmarkInfo{}, false
	}
	return landmarkInfo(e), true
}

// Landmarks returns all known landmarks sorted by display name.
func (gg *GeoGenie) Landmarks() []model.LandmarkInfo {
	entries := gg.eng.Catalog().List()
	out := make([]model.LandmarkInfo, len(entries))
	for i, e := range entries {
		out[i] = landmarkInfo(e)
	}
	return out
}

func landmarkInfo(e catalog.Entry) model.LandmarkInfo {
	return model.LandmarkInfo{
		ID:          e.ID,
		DisplayName: e.DisplayName,
		Coordinates: e.Coordinates,
		EntryCount:  e.EntryCount,
		LastUpdated: e.LastUpdated,
	}
}

// SaveSnapshot writes the full engine state to w.
func (gg *GeoGenie) SaveSnapshot(w io.Writer, optFns ...func(o *engine.SnapshotOptions)) error {
	start := time.Now()
	err := gg.eng.SaveSnapshot(w, optFns...)
	gg.metrics.RecordSnapshotSave(time.Since(start), err)
	return err
}

// LoadSnapshot replaces the engine state from a snapshot stream.
func (gg *GeoGenie) LoadSnapshot(r io.Reader) error {
	start := time.Now()
	err := gg.eng.LoadSnapshot(r)
	gg.metrics.RecordSnapshotLoad(time.Since(start), err)
	return err
}

// SaveToFile saves a snapshot to a local file, writing to a temporary file
// first so a crash mid-save never corrupts an existing snapshot.
func (gg *GeoGenie) SaveToFile(filename string, optFns ...func(o *engine.SnapshotOptions)) error {
	tmp := filename + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		gg.logger.LogSnapshot(context.Background(), "save", filename, err)
		return err
	}

	if err := gg.SaveSnapshot(f, optFns...); err != nil {
		f.Close()
		os.Remove(tmp)
		gg.logger.LogSnapshot(context.Background(), "save", filename, err)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		gg.logger.LogSnapshot(context.Background(), "save", filename, err)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		gg.logger.LogSnapshot(context.Background(), "save", filename, err)
		return err
	}

	err = os.Rename(tmp, filename)
	gg.logger.LogSnapshot(context.Background(), "save", filename, err)
	return err
}

// LoadFromFile restores the engine state from a local snapshot file.
func (gg *GeoGenie) LoadFromFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		gg.logger.LogSnapshot(context.Background(), "load", filename, err)
		return err
	}
	defer f.Close()

	err = gg.LoadSnapshot(f)
	gg.logger.LogSnapshot(context.Background(), "load", filename, err)
	return err
}

// PublishSnapshot serializes the engine state to the blob store under name.
func (gg *GeoGenie) PublishSnapshot(ctx context.Context, store blobstore.BlobStore, name string, optFns ...func(o *engine.SnapshotOptions)) error {
	start := time.Now()
	err := gg.eng.PublishSnapshot(ctx, store, name, optFns...)
	gg.metrics.RecordSnapshotSave(time.Since(start), err)
	return err
}

// LoadSnapshotBlob restores the engine state from a blob store snapshot.
func (gg *GeoGenie) LoadSnapshotBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()
	err := gg.eng.LoadSnapshotBlob(ctx, store, name)
	gg.metrics.RecordSnapshotLoad(time.Since(start), err)
	return err
}

// Stats describes the current engine state.
type Stats struct {
	// Entries is the number of vectors in the index.
	Entries int

	// Landmarks is the number of distinct catalog entries.
	Landmarks int

	// Dimension is the configured vector dimensionality.
	Dimension int

	// AcceptThreshold is the configured acceptance threshold.
	AcceptThreshold float64
}

// Stats returns statistics about the engine.
func (gg *GeoGenie) Stats() Stats {
	return Stats{
		Entries:         gg.eng.Size(),
		Landmarks:       gg.eng.Catalog().Len(),
		Dimension:       gg.eng.Index().Dimension(),
		AcceptThreshold: gg.eng.AcceptThreshold(),
	}
}

// Index exposes the underlying vector index, e.g. for an IVF Rebuild after
// bulk seeding.
func (gg *GeoGenie) Index() index.Index { return gg.eng.Index() }

// Close releases engine resources.
func (gg *GeoGenie) Close() error {
	return gg.eng.Close()
}
