package catalog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VijetHegde604/GeoGenie-backend/model"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "eiffel tower", "Eiffel_Tower"},
		{"extra whitespace", "  eiffel   tower  ", "Eiffel_Tower"},
		{"mixed case", "EIFFEL ToWeR", "Eiffel_Tower"},
		{"single word", "colosseum", "Colosseum"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestCatalog(t *testing.T) {
	t.Run("UpsertCreatesOnce", func(t *testing.T) {
		c := New()

		id1, err := c.Upsert("Eiffel Tower", nil)
		require.NoError(t, err)
		assert.Equal(t, model.LandmarkID(1), id1)

		// Same landmark under a differently-cased name.
		id2, err := c.Upsert("eiffel  tower", nil)
		require.NoError(t, err)
		assert.Equal(t, id1, id2)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("UpsertEmptyName", func(t *testing.T) {
		c := New()
		_, err := c.Upsert("   ", nil)
		assert.Error(t, err)
	})

	t.Run("CoordinatesSetOnlyOnce", func(t *testing.T) {
		c := New()

		id, err := c.Upsert("Eiffel Tower", &model.LatLng{Latitude: 48.8584, Longitude: 2.2945})
		require.NoError(t, err)

		// Later coordinates never overwrite the existing position.
		_, err = c.Upsert("Eiffel Tower", &model.LatLng{Latitude: 0, Longitude: 0})
		require.NoError(t, err)

		e, err := c.Resolve(id)
		require.NoError(t, err)
		require.NotNil(t, e.Coordinates)
		assert.Equal(t, 48.8584, e.Coordinates.Latitude)
	})

	t.Run("CoordinatesBackfilled", func(t *testing.T) {
		c := New()

		id, err := c.Upsert("Eiffel Tower", nil)
		require.NoError(t, err)

		_, err = c.Upsert("Eiffel Tower", &model.LatLng{Latitude: 48.8584, Longitude: 2.2945})
		require.NoError(t, err)

		e, err := c.Resolve(id)
		require.NoError(t, err)
		require.NotNil(t, e.Coordinates)
		assert.Equal(t, 48.8584, e.Coordinates.Latitude)
	})

	t.Run("ResolveUnknown", func(t *testing.T) {
		c := New()
		_, err := c.Resolve(42)
		assert.IsType(t, &ErrUnknownLandmark{}, err)
	})

	t.Run("ResolveName", func(t *testing.T) {
		c := New()
		_, err := c.Upsert("Eiffel Tower", nil)
		require.NoError(t, err)

		e, ok := c.ResolveName("EIFFEL TOWER")
		require.True(t, ok)
		assert.Equal(t, "Eiffel Tower", e.DisplayName)
		assert.Equal(t, "Eiffel_Tower", e.NormalizedName)

		_, ok = c.ResolveName("Colosseum")
		assert.False(t, ok)
	})

	t.Run("RecordMatch", func(t *testing.T) {
		c := New()
		c.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }

		id, err := c.Upsert("Colosseum", nil)
		require.NoError(t, err)

		require.NoError(t, c.RecordMatch(id))
		require.NoError(t, c.RecordMatch(id))

		e, err := c.Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, 2, e.EntryCount)
		assert.Equal(t, c.now(), e.LastUpdated)

		assert.IsType(t, &ErrUnknownLandmark{}, c.RecordMatch(99))
	})

	t.Run("ConcurrentUpsertSameName", func(t *testing.T) {
		c := New()

		const n = 32
		ids := make([]model.LandmarkID, n)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := c.Upsert("Eiffel Tower", nil)
				if err != nil {
					t.Error(err)
					return
				}
				ids[i] = id
				if err := c.RecordMatch(id); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		// Exactly one entry exists and every caller got its ID.
		assert.Equal(t, 1, c.Len())
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}

		// All racing matches landed on that single entry.
		e, ok := c.ResolveName("Eiffel Tower")
		require.True(t, ok)
		assert.Equal(t, n, e.EntryCount)
	})

	t.Run("List", func(t *testing.T) {
		c := New()
		_, _ = c.Upsert("Colosseum", nil)
		_, _ = c.Upsert("Big Ben", nil)
		_, _ = c.Upsert("Eiffel Tower", nil)

		got := c.List()
		require.Len(t, got, 3)
		assert.Equal(t, "Big Ben", got[0].DisplayName)
		assert.Equal(t, "Colosseum", got[1].DisplayName)
		assert.Equal(t, "Eiffel Tower", got[2].DisplayName)
	})
}

func TestCatalogSnapshot(t *testing.T) {
	t.Run("ExportRestore", func(t *testing.T) {
		c := New()
		id, _ := c.Upsert("Eiffel Tower", &model.LatLng{Latitude: 48.8584, Longitude: 2.2945})
		_, _ = c.Upsert("Colosseum", nil)
		require.NoError(t, c.RecordMatch(id))

		snap := c.Export()
		require.Len(t, snap.Entries, 2)
		assert.Equal(t, model.LandmarkID(3), snap.NextID)

		restored := New()
		require.NoError(t, restored.Restore(snap))
		assert.Equal(t, 2, restored.Len())

		e, err := restored.Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, "Eiffel Tower", e.DisplayName)
		assert.Equal(t, 1, e.EntryCount)

		// IDs keep advancing past the restored range.
		next, err := restored.Upsert("Big Ben", nil)
		require.NoError(t, err)
		assert.Equal(t, model.LandmarkID(3), next)
	})

	t.Run("RestoreRejectsDuplicates", func(t *testing.T) {
		restored := New()
		err := restored.Restore(Snapshot{
			NextID: 3,
			Entries: []Entry{
				{ID: 1, DisplayName: "A", NormalizedName: "A"},
				{ID: 1, DisplayName: "B", NormalizedName: "B"},
			},
		})
		assert.Error(t, err)

		err = restored.Restore(Snapshot{
			NextID: 3,
			Entries: []Entry{
				{ID: 1, DisplayName: "A", NormalizedName: "Same"},
				{ID: 2, DisplayName: "B", NormalizedName: "Same"},
			},
		})
		assert.Error(t, err)
	})
}
