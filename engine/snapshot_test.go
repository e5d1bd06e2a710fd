package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VijetHegde604/GeoGenie-backend/blobstore"
	"github.com/VijetHegde604/GeoGenie-backend/catalog"
	"github.com/VijetHegde604/GeoGenie-backend/codec"
	"github.com/VijetHegde604/GeoGenie-backend/index/flat"
	"github.com/VijetHegde604/GeoGenie-backend/model"
	"github.com/VijetHegde604/GeoGenie-backend/persistence"
	"github.com/VijetHegde604/GeoGenie-backend/testutil"
)

func seededEngine(t *testing.T) (*Engine, *testutil.FakeEmbedder) {
	t.Helper()
	e, embedder := newTestEngine(t, nil)

	_, err := e.Seed(context.Background(), []SeedItem{
		{Name: "Eiffel Tower", Vector: testutil.BasisVector(testDim, 0),
			Coordinates: &model.LatLng{Latitude: 48.8584, Longitude: 2.2945}},
		{Name: "Colosseum", Vector: testutil.BasisVector(testDim, 1)},
		{Name: "Big Ben", Vector: testutil.BasisVector(testDim, 2)},
	})
	require.NoError(t, err)
	return e, embedder
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		e, _ := seededEngine(t)

		var buf bytes.Buffer
		require.NoError(t, e.SaveSnapshot(&buf))

		restored, _ := newTestEngine(t, nil)
		require.NoError(t, restored.LoadSnapshot(bytes.NewReader(buf.Bytes())))

		assert.Equal(t, e.Size(), restored.Size())
		assert.Equal(t, e.Catalog().Len(), restored.Catalog().Len())

		// The restored engine serves the same answers.
		res, err := restored.RecognizeVector(ctx, testutil.BasisVector(testDim, 0), nil)
		require.NoError(t, err)
		assert.Equal(t, "Eiffel Tower", res.PlaceName)
		assert.Equal(t, model.ResultVisual, res.Source)
		require.NotNil(t, res.Coordinates)
		assert.Equal(t, 48.8584, res.Coordinates.Latitude)

		// Re-saving the restored state reproduces the stream byte for byte.
		var buf2 bytes.Buffer
		require.NoError(t, restored.SaveSnapshot(&buf2))
		assert.Equal(t, buf.Bytes(), buf2.Bytes())
	})

	t.Run("AllCompressions", func(t *testing.T) {
		for _, comp := range []persistence.Compression{
			persistence.CompressionNone,
			persistence.CompressionZstd,
			persistence.CompressionLZ4,
		} {
			t.Run(string(comp), func(t *testing.T) {
				e, _ := seededEngine(t)

				var buf bytes.Buffer
				require.NoError(t, e.SaveSnapshot(&buf, func(o *SnapshotOptions) {
					o.Compression = comp
				}))

				restored, _ := newTestEngine(t, nil)
				require.NoError(t, restored.LoadSnapshot(bytes.NewReader(buf.Bytes())))
				assert.Equal(t, e.Size(), restored.Size())
			})
		}
	})

	t.Run("CorruptSectionDetected", func(t *testing.T) {
		e, _ := seededEngine(t)

		var buf bytes.Buffer
		require.NoError(t, e.SaveSnapshot(&buf))

		// Flip one byte in the middle of the stream, past the header.
		data := buf.Bytes()
		data[len(data)/2] ^= 0xff

		restored, _ := newTestEngine(t, nil)
		err := restored.LoadSnapshot(bytes.NewReader(data))
		require.Error(t, err)

		var mismatch *persistence.ChecksumMismatchError
		assert.ErrorAs(t, err, &mismatch)

		// The failed load left the engine untouched.
		assert.Equal(t, 0, restored.Size())
		assert.Equal(t, 0, restored.Catalog().Len())
	})

	t.Run("InvalidCatalogLeavesEngineUnchanged", func(t *testing.T) {
		e, _ := seededEngine(t)
		entries := e.Size()
		landmarks := e.Catalog().Len()

		// Hand-build a stream whose sections checksum cleanly but whose
		// catalog repeats a landmark ID. The load must fail without
		// replacing either the index or the catalog.
		idx, err := flat.New(func(o *flat.Options) { o.Dimension = testDim })
		require.NoError(t, err)
		_, err = idx.Insert(model.Entry{LandmarkID: 7, Vector: testutil.BasisVector(testDim, 3)})
		require.NoError(t, err)
		var indexBuf bytes.Buffer
		_, err = idx.WriteTo(&indexBuf)
		require.NoError(t, err)

		catBytes, err := codec.Default.Marshal(catalog.Snapshot{Entries: []catalog.Entry{
			{ID: 7, DisplayName: "Arc de Triomphe", NormalizedName: "Arc_De_Triomphe"},
			{ID: 7, DisplayName: "Sagrada Familia", NormalizedName: "Sagrada_Familia"},
		}})
		require.NoError(t, err)

		var buf bytes.Buffer
		buf.Write(snapshotMagic[:])
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, snapshotVersion))
		require.NoError(t, writeName(&buf, codec.Default.Name()))
		require.NoError(t, writeName(&buf, string(persistence.CompressionNone)))
		require.NoError(t, writeSection(&buf, persistence.CompressionNone, indexBuf.Bytes()))
		require.NoError(t, writeSection(&buf, persistence.CompressionNone, catBytes))

		err = e.LoadSnapshot(bytes.NewReader(buf.Bytes()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate landmark id")

		assert.Equal(t, entries, e.Size())
		assert.Equal(t, landmarks, e.Catalog().Len())

		// Previously seeded vectors still resolve.
		res, err := e.RecognizeVector(ctx, testutil.BasisVector(testDim, 0), nil)
		require.NoError(t, err)
		assert.Equal(t, "Eiffel Tower", res.PlaceName)
	})

	t.Run("BadHeader", func(t *testing.T) {
		e, _ := seededEngine(t)

		var buf bytes.Buffer
		require.NoError(t, e.SaveSnapshot(&buf))
		good := buf.Bytes()

		tests := []struct {
			name   string
			mutate func(data []byte)
		}{
			{"bad magic", func(data []byte) { data[0] = 'X' }},
			{"unsupported version", func(data []byte) { data[4] = 99 }},
			{"unknown codec", func(data []byte) { data[7] = 'x' }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				data := make([]byte, len(good))
				copy(data, good)
				tt.mutate(data)

				restored, _ := newTestEngine(t, nil)
				err := restored.LoadSnapshot(bytes.NewReader(data))
				require.Error(t, err)

				var ef *ErrSnapshotFormat
				assert.ErrorAs(t, err, &ef)
			})
		}
	})

	t.Run("UnknownCompressionOnSave", func(t *testing.T) {
		e, _ := seededEngine(t)

		var buf bytes.Buffer
		err := e.SaveSnapshot(&buf, func(o *SnapshotOptions) {
			o.Compression = persistence.Compression("gzip")
		})
		assert.Error(t, err)
	})

	t.Run("Truncated", func(t *testing.T) {
		e, _ := seededEngine(t)

		var buf bytes.Buffer
		require.NoError(t, e.SaveSnapshot(&buf))

		restored, _ := newTestEngine(t, nil)
		err := restored.LoadSnapshot(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
		assert.Error(t, err)
	})

	t.Run("PublishAndLoadBlob", func(t *testing.T) {
		e, _ := seededEngine(t)
		store := blobstore.NewMemoryStore()

		require.NoError(t, e.PublishSnapshot(ctx, store, "snapshots/v1.ggs"))

		names, err := store.List(ctx, "snapshots/")
		require.NoError(t, err)
		assert.Equal(t, []string{"snapshots/v1.ggs"}, names)

		restored, _ := newTestEngine(t, nil)
		require.NoError(t, restored.LoadSnapshotBlob(ctx, store, "snapshots/v1.ggs"))
		assert.Equal(t, e.Size(), restored.Size())

		res, err := restored.RecognizeVector(ctx, testutil.BasisVector(testDim, 1), nil)
		require.NoError(t, err)
		assert.Equal(t, "Colosseum", res.PlaceName)
	})

	t.Run("LoadMissingBlob", func(t *testing.T) {
		e, _ := newTestEngine(t, nil)
		err := e.LoadSnapshotBlob(ctx, blobstore.NewMemoryStore(), "nope.ggs")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
