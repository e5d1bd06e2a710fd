package ivf

import (
	"bytes"
	"context"
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VijetHegde604/GeoGenie-backend/distance"
	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

func newTestIndex(t *testing.T, dim, partitions, nprobe int) *IVF {
	t.Helper()
	ivf, err := New(func(o *Options) {
		o.Dimension = dim
		o.NumPartitions = partitions
		o.NProbe = nprobe
	})
	require.NoError(t, err)
	return ivf
}

func randomUnitVector(rng *rand.Rand, dim int) model.Vector {
	v := make(model.Vector, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	distance.NormalizeL2InPlace(v)
	return v
}

func TestIVF(t *testing.T) {
	t.Run("UntrainedExactScan", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 4, 2)

		_, _ = ivf.Insert(model.Entry{LandmarkID: 1, Vector: []float32{1, 0, 0}})
		_, _ = ivf.Insert(model.Entry{LandmarkID: 2, Vector: []float32{0, 1, 0}})
		_, _ = ivf.Insert(model.Entry{LandmarkID: 3, Vector: []float32{0, 0, 1}})

		hits, err := ivf.Query([]float32{0, 1, 0.1}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, model.LandmarkID(2), hits[0].LandmarkID)
		assert.Equal(t, model.LandmarkID(3), hits[1].LandmarkID)
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 4, 2)
		v := model.Vector{1, 0, 0}

		_, err := ivf.Insert(model.Entry{LandmarkID: 1, Vector: v})
		require.NoError(t, err)
		_, err = ivf.Insert(model.Entry{LandmarkID: 1, Vector: v})
		require.NoError(t, err)
		assert.Equal(t, 2, ivf.Size())

		hits, err := ivf.Query(v, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, model.LandmarkID(1), hits[0].LandmarkID)
		assert.Equal(t, model.LandmarkID(1), hits[1].LandmarkID)
	})

	t.Run("RecallFloor", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 16, 4)
		assert.InDelta(t, 0.25, ivf.RecallFloor(), 1e-9)
	})

	t.Run("RebuildAndQuery", func(t *testing.T) {
		ivf := newTestIndex(t, 8, 4, 4)
		rng := rand.New(rand.NewPCG(42, 42))

		vectors := make([]model.Vector, 100)
		for i := range vectors {
			vectors[i] = randomUnitVector(rng, 8)
			_, err := ivf.Insert(model.Entry{
				LandmarkID: model.LandmarkID(i + 1),
				Vector:     vectors[i],
			})
			require.NoError(t, err)
		}

		require.NoError(t, ivf.Rebuild(context.Background()))

		// NProbe == NumPartitions probes everything, so the trained index
		// must agree with an exact scan.
		for i := 0; i < 10; i++ {
			q := vectors[i*7]
			hits, err := ivf.Query(q, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, model.LandmarkID(i*7+1), hits[0].LandmarkID)
			assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
		}
	})

	t.Run("RebuildDeterministic", func(t *testing.T) {
		build := func() []index.SearchResult {
			ivf := newTestIndex(t, 4, 4, 2)
			rng := rand.New(rand.NewPCG(7, 7))
			for i := 0; i < 50; i++ {
				_, err := ivf.Insert(model.Entry{
					LandmarkID: model.LandmarkID(i + 1),
					Vector:     randomUnitVector(rng, 4),
				})
				require.NoError(t, err)
			}
			require.NoError(t, ivf.Rebuild(context.Background()))

			hits, err := ivf.Query([]float32{1, 0, 0, 0}, 5)
			require.NoError(t, err)
			return hits
		}

		assert.Equal(t, build(), build())
	})

	t.Run("InsertAfterRebuild", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 2, 2)

		_, _ = ivf.Insert(model.Entry{LandmarkID: 1, Vector: []float32{1, 0, 0}})
		_, _ = ivf.Insert(model.Entry{LandmarkID: 2, Vector: []float32{0, 1, 0}})
		require.NoError(t, ivf.Rebuild(context.Background()))

		// New entries land in a partition immediately and are queryable
		// without another rebuild.
		_, err := ivf.Insert(model.Entry{LandmarkID: 3, Vector: []float32{0, 0, 1}})
		require.NoError(t, err)

		hits, err := ivf.Query([]float32{0, 0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, model.LandmarkID(3), hits[0].LandmarkID)
	})

	t.Run("RebuildEmpty", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 2, 2)
		assert.NoError(t, ivf.Rebuild(context.Background()))
	})

	t.Run("RebuildCancelled", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 2, 2)
		_, _ = ivf.Insert(model.Entry{LandmarkID: 1, Vector: []float32{1, 0, 0}})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, ivf.Rebuild(ctx))
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 2, 2)

		_, err := ivf.Insert(model.Entry{LandmarkID: 1, Vector: []float32{1, 0}})
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)

		_, err = ivf.Query([]float32{1, 0}, 1)
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)
	})
}

func TestIVFSerialization(t *testing.T) {
	t.Run("RoundTripTrained", func(t *testing.T) {
		ivf := newTestIndex(t, 4, 4, 2)
		rng := rand.New(rand.NewPCG(3, 3))
		for i := 0; i < 40; i++ {
			_, err := ivf.Insert(model.Entry{
				LandmarkID: model.LandmarkID(i%5 + 1),
				Vector:     randomUnitVector(rng, 4),
			})
			require.NoError(t, err)
		}
		require.NoError(t, ivf.Rebuild(context.Background()))

		var buf bytes.Buffer
		_, err := ivf.WriteTo(&buf)
		require.NoError(t, err)

		restored := newTestIndex(t, 4, 4, 2)
		_, err = restored.ReadFrom(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)

		require.Equal(t, ivf.Size(), restored.Size())

		// Partitions are derived from persisted centroids, so queries on
		// the restored index reproduce the original results exactly.
		for i := 0; i < 5; i++ {
			q := randomUnitVector(rng, 4)
			want, err := ivf.Query(q, 3)
			require.NoError(t, err)
			got, err := restored.Query(q, 3)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("RoundTripUntrained", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 2, 2)
		_, _ = ivf.Insert(model.Entry{LandmarkID: 1, Vector: []float32{1, 0, 0}})

		var buf bytes.Buffer
		_, err := ivf.WriteTo(&buf)
		require.NoError(t, err)

		restored := newTestIndex(t, 3, 2, 2)
		_, err = restored.ReadFrom(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 1, restored.Size())
	})

	t.Run("RejectsNonDenseIDs", func(t *testing.T) {
		ivf := newTestIndex(t, 3, 2, 2)
		_, _ = ivf.Insert(model.Entry{LandmarkID: 1, Vector: []float32{1, 0, 0}})

		var buf bytes.Buffer
		_, err := ivf.WriteTo(&buf)
		require.NoError(t, err)

		// Rewrite the first entry's ID past the entry count.
		data := buf.Bytes()
		binary.LittleEndian.PutUint32(data[18:22], 7)

		restored := newTestIndex(t, 3, 2, 2)
		_, err = restored.ReadFrom(bytes.NewReader(data))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dense")
		assert.Equal(t, 0, restored.Size())
	})
}
