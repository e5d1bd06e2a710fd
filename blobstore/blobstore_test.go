package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStore(t *testing.T) {
	stores := map[string]func(t *testing.T) BlobStore{
		"memory": func(t *testing.T) BlobStore { return NewMemoryStore() },
		"local":  func(t *testing.T) BlobStore { return NewLocalStore(t.TempDir()) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("PutOpenReadAll", func(t *testing.T) {
				s := newStore(t)
				want := []byte("snapshot payload")
				require.NoError(t, s.Put(ctx, "snap.ggs", want))

				b, err := s.Open(ctx, "snap.ggs")
				require.NoError(t, err)
				defer b.Close()

				assert.Equal(t, int64(len(want)), b.Size())

				got, err := ReadAll(b)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})

			t.Run("PutReplaces", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Put(ctx, "snap.ggs", []byte("old old old")))
				require.NoError(t, s.Put(ctx, "snap.ggs", []byte("new")))

				b, err := s.Open(ctx, "snap.ggs")
				require.NoError(t, err)
				defer b.Close()

				got, err := ReadAll(b)
				require.NoError(t, err)
				assert.Equal(t, []byte("new"), got)
			})

			t.Run("OpenMissing", func(t *testing.T) {
				s := newStore(t)
				_, err := s.Open(ctx, "missing.ggs")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Delete", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Put(ctx, "snap.ggs", []byte("x")))
				require.NoError(t, s.Delete(ctx, "snap.ggs"))

				_, err := s.Open(ctx, "snap.ggs")
				assert.ErrorIs(t, err, ErrNotFound)

				// Deleting a missing blob is not an error.
				assert.NoError(t, s.Delete(ctx, "snap.ggs"))
			})

			t.Run("ListSortedWithPrefix", func(t *testing.T) {
				s := newStore(t)
				require.NoError(t, s.Put(ctx, "snapshots/b.ggs", []byte("b")))
				require.NoError(t, s.Put(ctx, "snapshots/a.ggs", []byte("a")))
				require.NoError(t, s.Put(ctx, "other/c.ggs", []byte("c")))

				names, err := s.List(ctx, "snapshots/")
				require.NoError(t, err)
				assert.Equal(t, []string{"snapshots/a.ggs", "snapshots/b.ggs"}, names)
			})
		})
	}
}

func TestLocalStoreAtomicity(t *testing.T) {
	// Temp files left behind by an interrupted Put must never surface as
	// blobs.
	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "snap.ggs", []byte("data")))

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"snap.ggs"}, names)

	for _, n := range names {
		assert.NotContains(t, n, ".tmp-")
	}
}

func TestReadAllErr(t *testing.T) {
	// errors.Is works through wrapped store errors too.
	s := NewMemoryStore()
	_, err := s.Open(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
