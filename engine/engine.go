package engine

import (
	"context"
	"log/slog"

	"github.com/VijetHegde604/GeoGenie-backend/catalog"
	"github.com/VijetHegde604/GeoGenie-backend/distance"
	"github.com/VijetHegde604/GeoGenie-backend/embed"
	"github.com/VijetHegde604/GeoGenie-backend/geocode"
	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// Engine orchestrates recognition and feedback over one vector index and
// one landmark catalog. It is safe for concurrent use: index queries are
// lock-free, index inserts and catalog writes take short internal locks,
// and no lock is held across the embedding or geocoding calls.
type Engine struct {
	idx      index.Index
	cat      *catalog.Catalog
	embedder embed.Provider
	geocoder geocode.Adapter
	opts     Options
	logger   *slog.Logger
}

// New creates an engine over the given collaborators.
// geocoder may be nil, in which case every request goes straight to the
// visual attempt.
func New(idx index.Index, cat *catalog.Catalog, embedder embed.Provider, geocoder geocode.Adapter, optFns ...func(o *Options)) *Engine {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions.TopK
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		idx:      idx,
		cat:      cat,
		embedder: embedder,
		geocoder: geocoder,
		opts:     opts,
		logger:   logger,
	}
}

// Index returns the underlying vector index.
func (e *Engine) Index() index.Index { return e.idx }

// Catalog returns the underlying landmark catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Size returns the number of index entries.
func (e *Engine) Size() int { return e.idx.Size() }

// AcceptThreshold returns the configured acceptance threshold.
func (e *Engine) AcceptThreshold() float64 { return e.opts.AcceptThreshold }

// RecognizeRequest is one recognition request.
type RecognizeRequest struct {
	// Image is the submitted photograph.
	Image []byte

	// Coordinates are optional caller-supplied GPS coordinates.
	Coordinates *model.LatLng
}

// Recognize runs the GPS-first / vision-fallback pipeline.
//
// Reverse geocoding is treated as authoritative: a geo hit returns
// confidence 1.0 without ever invoking the embedding provider. Geocoding
// failures and misses are absorbed and fall through to the visual attempt.
// An embedding failure is fatal to the request and surfaces as
// *ErrRecognitionFailed; it is not retried here.
func (e *Engine) Recognize(ctx context.Context, req RecognizeRequest) (model.Result, error) {
	if req.Coordinates != nil && req.Coordinates.Valid() && e.geocoder != nil {
		if res, ok := e.geoAttempt(ctx, *req.Coordinates); ok {
			return res, nil
		}
	}

	return e.visualAttempt(ctx, req)
}

// geoAttempt resolves coordinates through the geocoding adapter. The bool
// result reports whether an authoritative result was produced.
func (e *Engine) geoAttempt(ctx context.Context, coords model.LatLng) (model.Result, bool) {
	name, err := e.geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		// Absorbed: the pipeline falls through to visual search.
		e.logger.WarnContext(ctx, "geocoding unavailable, falling back to visual search",
			"coordinates", coords.String(),
			"error", err,
		)
		return model.Result{}, false
	}
	if name == "" {
		e.logger.DebugContext(ctx, "geocoding miss",
			"coordinates", coords.String(),
		)
		return model.Result{}, false
	}

	e.logger.DebugContext(ctx, "geocoding hit",
		"coordinates", coords.String(),
		"place_name", name,
	)

	return model.Result{
		PlaceName:   name,
		Confidence:  1.0,
		Source:      model.ResultGeo,
		Coordinates: &coords,
	}, true
}

// RecognizeVector is Recognize for callers that already hold an embedding
// (offline tooling, precomputed batches). The GPS-first stage still applies
// when coords are present.
func (e *Engine) RecognizeVector(ctx context.Context, vec model.Vector, coords *model.LatLng) (model.Result, error) {
	if coords != nil && coords.Valid() && e.geocoder != nil {
		if res, ok := e.geoAttempt(ctx, *coords); ok {
			return res, nil
		}
	}

	return e.matchVector(ctx, vec)
}

// visualAttempt embeds the image, queries the index and applies the
// acceptance threshold.
func (e *Engine) visualAttempt(ctx context.Context, req RecognizeRequest) (model.Result, error) {
	vec, err := e.embedder.Embed(ctx, req.Image)
	if err != nil {
		e.logger.ErrorContext(ctx, "embedding failed", "error", err)
		return model.Result{}, &ErrRecognitionFailed{cause: err}
	}

	return e.matchVector(ctx, vec)
}

// matchVector queries the index with an embedding and applies the
// acceptance threshold.
func (e *Engine) matchVector(ctx context.Context, vec model.Vector) (model.Result, error) {
	hits, err := e.idx.Query(vec, e.opts.TopK)
	if err != nil {
		// Only a dimension mismatch reaches here; that is a wiring bug,
		// not a data condition.
		e.logger.ErrorContext(ctx, "index query failed", "error", err)
		return model.Result{}, err
	}

	if len(hits) == 0 {
		return model.Result{Source: model.ResultNone}, nil
	}

	best, score := aggregateByLandmark(hits)
	confidence := distance.Clamp01(float64(score))

	if confidence < e.opts.AcceptThreshold {
		e.logger.DebugContext(ctx, "visual match below threshold",
			"landmark_id", uint64(best),
			"confidence", confidence,
			"threshold", e.opts.AcceptThreshold,
		)
		return model.Result{Source: model.ResultNone}, nil
	}

	entry, err := e.cat.Resolve(best)
	if err != nil {
		// An index entry without a catalog entry violates the engine's
		// core invariant; surface it loudly.
		e.logger.ErrorContext(ctx, "index entry references unknown landmark",
			"landmark_id", uint64(best),
			"error", err,
		)
		return model.Result{}, err
	}

	if err := e.cat.RecordMatch(best); err != nil {
		return model.Result{}, err
	}

	e.logger.DebugContext(ctx, "visual match accepted",
		"place_name", entry.DisplayName,
		"confidence", confidence,
	)

	return model.Result{
		PlaceName:   entry.DisplayName,
		Confidence:  confidence,
		Source:      model.ResultVisual,
		Coordinates: entry.Coordinates,
	}, nil
}

// aggregateByLandmark reduces raw hits to one score per landmark, taking
// the maximum similarity across entries sharing a landmark so landmarks
// with many reference photos gain no advantage. The winner is the landmark
// with the highest aggregate; on equal aggregates the landmark whose best
// hit ranks earlier wins, keeping selection deterministic.
func aggregateByLandmark(hits []index.SearchResult) (model.LandmarkID, float32) {
	scores := make(map[model.LandmarkID]float32, len(hits))
	order := make([]model.LandmarkID, 0, len(hits))

	for _, h := range hits {
		if prev, seen := scores[h.LandmarkID]; seen {
			if h.Score > prev {
				scores[h.LandmarkID] = h.Score
			}
			continue
		}
		scores[h.LandmarkID] = h.Score
		order = append(order, h.LandmarkID)
	}

	best := order[0]
	bestScore := scores[best]
	for _, lm := range order[1:] {
		if scores[lm] > bestScore {
			best = lm
			bestScore = scores[lm]
		}
	}
	return best, bestScore
}

// Feedback is one user correction.
type Feedback struct {
	// Image is the photograph being corrected. Ignored when Vector is set.
	Image []byte

	// Vector optionally carries a precomputed embedding, sparing a
	// second provider call when the recognition attempt already embedded
	// the image.
	Vector model.Vector

	// CorrectedName is the landmark the image actually shows.
	CorrectedName string

	// Coordinates optionally refine the landmark position.
	Coordinates *model.LatLng
}

// SubmitFeedback incorporates a correction into future recognitions.
//
// The catalog upsert and the index insert happen together: a new landmark
// never exists in the index without its catalog entry. The inserted entry
// is live for the very next query; there is no separate apply step.
// Feedback entries carry the same weight as seed entries.
func (e *Engine) SubmitFeedback(ctx context.Context, fb Feedback) error {
	if catalog.NormalizeName(fb.CorrectedName) == "" {
		return &ErrValidation{Reason: "corrected name must not be empty"}
	}
	if fb.Coordinates != nil && !fb.Coordinates.Valid() {
		return &ErrValidation{Reason: "coordinates out of range"}
	}

	vec := fb.Vector
	if vec == nil {
		var err error
		vec, err = e.embedder.Embed(ctx, fb.Image)
		if err != nil {
			return &ErrValidation{Reason: "image could not be embedded", cause: err}
		}
	} else if len(vec) != e.idx.Dimension() {
		return &ErrValidation{
			Reason: "vector dimensionality does not match the index",
		}
	}

	landmarkID, err := e.cat.Upsert(fb.CorrectedName, fb.Coordinates)
	if err != nil {
		return &ErrValidation{Reason: "corrected name rejected", cause: err}
	}

	entryID, err := e.idx.Insert(model.Entry{
		LandmarkID: landmarkID,
		Source:     model.SourceFeedback,
		Vector:     vec,
	})
	if err != nil {
		return err
	}

	if err := e.cat.RecordMatch(landmarkID); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "feedback applied",
		"landmark_id", uint64(landmarkID),
		"entry_id", uint32(entryID),
		"corrected_name", fb.CorrectedName,
	)

	return nil
}

// Close flushes nothing today but anchors the explicit lifecycle: callers
// construct the engine at process start and are expected to export a
// snapshot before shutdown.
func (e *Engine) Close() error { return nil }
