package persistence

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names the byte compression applied to snapshot sections.
// Snapshots are self-describing: the name is stored in the header and the
// matching decompressor is selected by name on load.
type Compression string

const (
	// CompressionNone stores sections uncompressed.
	CompressionNone Compression = "none"
	// CompressionZstd uses zstandard, the default: best ratio for the
	// float-heavy vector sections at acceptable speed.
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 trades ratio for faster decompression, useful when
	// snapshot load time dominates (e.g. frequent cold starts).
	CompressionLZ4 Compression = "lz4"
)

// DefaultCompression is applied to newly written snapshots.
const DefaultCompression = CompressionZstd

// CompressionByName validates a compression name from a snapshot header.
func CompressionByName(name string) (Compression, bool) {
	switch Compression(name) {
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return Compression(name), true
	default:
		return "", false
	}
}

// Compress compresses data with the selected algorithm.
func Compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("persistence: unknown compression %q", c)
	}
}

// Decompress reverses Compress.
func Decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CompressionLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("persistence: unknown compression %q", c)
	}
}
