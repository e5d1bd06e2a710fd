package geogenie_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geogenie "github.com/VijetHegde604/GeoGenie-backend"
	"github.com/VijetHegde604/GeoGenie-backend/engine"
	"github.com/VijetHegde604/GeoGenie-backend/index/ivf"
	"github.com/VijetHegde604/GeoGenie-backend/model"
	"github.com/VijetHegde604/GeoGenie-backend/testutil"
)

const dim = 8

func TestBuilder(t *testing.T) {
	t.Run("FlatDefaults", func(t *testing.T) {
		gg, err := geogenie.Flat(dim).
			Embedder(testutil.NewFakeEmbedder(dim)).
			Build()
		require.NoError(t, err)
		defer gg.Close()

		stats := gg.Stats()
		assert.Equal(t, dim, stats.Dimension)
		assert.Equal(t, 0.6, stats.AcceptThreshold)
		assert.Equal(t, 0, stats.Entries)
	})

	t.Run("FlatInvalidDimension", func(t *testing.T) {
		_, err := geogenie.Flat(0).Build()
		assert.Error(t, err)
	})

	t.Run("Immutable", func(t *testing.T) {
		base := geogenie.Flat(dim).Embedder(testutil.NewFakeEmbedder(dim))
		strict := base.AcceptThreshold(0.9)
		loose := base.AcceptThreshold(0.3)

		gg1 := strict.MustBuild()
		defer gg1.Close()
		gg2 := loose.MustBuild()
		defer gg2.Close()

		assert.Equal(t, 0.9, gg1.Stats().AcceptThreshold)
		assert.Equal(t, 0.3, gg2.Stats().AcceptThreshold)
		assert.Equal(t, 0.6, base.MustBuild().Stats().AcceptThreshold)
	})

	t.Run("IVF", func(t *testing.T) {
		gg, err := geogenie.IVF(dim).
			Partitions(4).
			NProbe(2).
			RandomSeed(42).
			Embedder(testutil.NewFakeEmbedder(dim)).
			Build()
		require.NoError(t, err)
		defer gg.Close()

		assert.Equal(t, dim, gg.Stats().Dimension)
		// The concrete index is exposed for post-seed training.
		_, ok := gg.Index().(*ivf.IVF)
		assert.True(t, ok)
	})
}

func TestGeoGenie(t *testing.T) {
	ctx := context.Background()

	newInstance := func(t *testing.T) (*geogenie.GeoGenie, *testutil.FakeEmbedder, *geogenie.BasicMetricsCollector) {
		t.Helper()
		embedder := testutil.NewFakeEmbedder(dim)
		metrics := &geogenie.BasicMetricsCollector{}

		gg, err := geogenie.Flat(dim).
			Embedder(embedder).
			Metrics(metrics).
			Logger(geogenie.NoopLogger()).
			Build()
		require.NoError(t, err)
		t.Cleanup(func() { gg.Close() })
		return gg, embedder, metrics
	}

	t.Run("EndToEnd", func(t *testing.T) {
		gg, embedder, metrics := newInstance(t)

		v := testutil.BasisVector(dim, 0)
		n, err := gg.Seed(ctx, []engine.SeedItem{
			{Name: "Eiffel Tower", Vector: v,
				Coordinates: &model.LatLng{Latitude: 48.8584, Longitude: 2.2945}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		embedder.Register([]byte("photo"), v)
		res, err := gg.Recognize(ctx, []byte("photo"), nil)
		require.NoError(t, err)
		assert.Equal(t, "Eiffel Tower", res.PlaceName)
		assert.Equal(t, model.ResultVisual, res.Source)

		entry, ok := gg.Lookup("eiffel tower")
		require.True(t, ok)
		assert.Equal(t, "Eiffel Tower", entry.DisplayName)

		all := gg.Landmarks()
		require.Len(t, all, 1)

		stats := metrics.GetStats()
		assert.EqualValues(t, 1, stats.RecognitionCount)
		assert.EqualValues(t, 1, stats.VisualHits)
		assert.EqualValues(t, 1, stats.SeedCount)
		assert.EqualValues(t, 1, stats.SeedEntries)
	})

	t.Run("FeedbackThenRecognize", func(t *testing.T) {
		gg, _, metrics := newInstance(t)

		v := testutil.BasisVector(dim, 2)
		require.NoError(t, gg.SubmitFeedback(ctx, engine.Feedback{
			CorrectedName: "Colosseum",
			Vector:        v,
		}))

		res, err := gg.RecognizeVector(ctx, v, nil)
		require.NoError(t, err)
		assert.Equal(t, "Colosseum", res.PlaceName)

		assert.EqualValues(t, 1, metrics.GetStats().FeedbackCount)
	})

	t.Run("TranslatedErrors", func(t *testing.T) {
		gg, embedder, metrics := newInstance(t)

		err := gg.SubmitFeedback(ctx, engine.Feedback{CorrectedName: ""})
		assert.ErrorIs(t, err, geogenie.ErrInvalidFeedback)

		embedder.Err = assert.AnError
		_, err = gg.Recognize(ctx, []byte("photo"), nil)
		assert.ErrorIs(t, err, geogenie.ErrRecognitionFailed)

		_, err = gg.RecognizeVector(ctx, model.Vector{1, 0}, nil)
		var dm *geogenie.ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, dim, dm.Expected)
		assert.Equal(t, 2, dm.Actual)

		stats := metrics.GetStats()
		assert.EqualValues(t, 2, stats.RecognitionErrors)
		assert.EqualValues(t, 1, stats.FeedbackErrors)
	})

	t.Run("NoMatchIsNotAnError", func(t *testing.T) {
		gg, _, metrics := newInstance(t)

		res, err := gg.RecognizeVector(ctx, testutil.BasisVector(dim, 0), nil)
		require.NoError(t, err)
		assert.Equal(t, model.ResultNone, res.Source)
		assert.EqualValues(t, 1, metrics.GetStats().NoMatches)
	})

	t.Run("FileRoundTrip", func(t *testing.T) {
		gg, _, metrics := newInstance(t)

		_, err := gg.Seed(ctx, []engine.SeedItem{
			{Name: "Eiffel Tower", Vector: testutil.BasisVector(dim, 0)},
			{Name: "Colosseum", Vector: testutil.BasisVector(dim, 1)},
		})
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "snapshot.ggs")
		require.NoError(t, gg.SaveToFile(path))

		restored, _, _ := newInstance(t)
		require.NoError(t, restored.LoadFromFile(path))

		assert.Equal(t, gg.Stats().Entries, restored.Stats().Entries)
		assert.Equal(t, gg.Stats().Landmarks, restored.Stats().Landmarks)

		res, err := restored.RecognizeVector(ctx, testutil.BasisVector(dim, 1), nil)
		require.NoError(t, err)
		assert.Equal(t, "Colosseum", res.PlaceName)

		stats := metrics.GetStats()
		assert.EqualValues(t, 1, stats.SnapshotSaves)
		assert.EqualValues(t, 0, stats.SnapshotSaveErrors)
	})

	t.Run("LoadMissingFile", func(t *testing.T) {
		gg, _, _ := newInstance(t)
		assert.Error(t, gg.LoadFromFile(filepath.Join(t.TempDir(), "missing.ggs")))
	})
}
