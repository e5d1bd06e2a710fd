// Package blobstore abstracts snapshot blob storage.
//
// The engine writes and reads snapshots through this interface so index
// construction tooling (cmd/geogenie build) and the serving engine can
// exchange snapshots via local disk, S3, MinIO or memory without either
// side knowing the backend.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// BlobStore stores immutable snapshot blobs under flat names.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Put writes a blob atomically, replacing any existing blob with the
	// same name.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs that expose their bytes
// without copying (e.g. memory-mapped local files).
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// ReadAll reads the full contents of a blob, zero-copy when supported.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err == nil {
			// Copy: the mapping dies with the blob, the result must not.
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		}
	}

	out := make([]byte, b.Size())
	if _, err := b.ReadAt(out, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
