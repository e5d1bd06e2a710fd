package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/VijetHegde604/GeoGenie-backend/blobstore"
	"github.com/VijetHegde604/GeoGenie-backend/catalog"
	"github.com/VijetHegde604/GeoGenie-backend/codec"
	"github.com/VijetHegde604/GeoGenie-backend/persistence"
)

// Snapshot format, version 1.
//
// The format is self-describing: the header names the codec and the
// compression so a snapshot can be opened without out-of-band knowledge.
//
//	magic   "GGS1"        4 bytes
//	version uint16        little-endian
//	codec   name          uint8 length + bytes
//	comp    name          uint8 length + bytes
//	section index         uint32 length + compressed bytes + uint32 CRC32
//	section catalog       uint32 length + compressed bytes + uint32 CRC32
//
// The index section holds the index's own binary stream; the catalog
// section holds the codec-marshaled catalog snapshot. Checksums cover the
// compressed bytes of each section.
var snapshotMagic = [4]byte{'G', 'G', 'S', '1'}

const snapshotVersion uint16 = 1

// ErrSnapshotFormat indicates a snapshot stream that cannot be opened:
// wrong magic, unsupported version, or an unknown codec or compression
// name in the header.
type ErrSnapshotFormat struct {
	Reason string
}

func (e *ErrSnapshotFormat) Error() string {
	return fmt.Sprintf("snapshot format: %s", e.Reason)
}

// SnapshotOptions selects the codec and compression for written snapshots.
// Loading ignores them; the stream header governs.
type SnapshotOptions struct {
	Codec       codec.Codec
	Compression persistence.Compression
}

// DefaultSnapshotOptions contains the default snapshot write options.
var DefaultSnapshotOptions = SnapshotOptions{
	Codec:       codec.Default,
	Compression: persistence.DefaultCompression,
}

// SaveSnapshot writes the engine's full state (index entries and catalog)
// to w. Saving and serving are safe concurrently: the index section is
// built from a single atomic state snapshot and the catalog export holds
// its read lock only while copying.
func (e *Engine) SaveSnapshot(w io.Writer, optFns ...func(o *SnapshotOptions)) error {
	opts := DefaultSnapshotOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if _, ok := persistence.CompressionByName(string(opts.Compression)); !ok {
		return fmt.Errorf("engine: unknown snapshot compression %q", opts.Compression)
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, snapshotVersion); err != nil {
		return err
	}
	if err := writeName(w, opts.Codec.Name()); err != nil {
		return err
	}
	if err := writeName(w, string(opts.Compression)); err != nil {
		return err
	}

	var indexBuf bytes.Buffer
	if _, err := e.idx.WriteTo(&indexBuf); err != nil {
		return fmt.Errorf("engine: serialize index: %w", err)
	}
	if err := writeSection(w, opts.Compression, indexBuf.Bytes()); err != nil {
		return fmt.Errorf("engine: write index section: %w", err)
	}

	catBytes, err := opts.Codec.Marshal(e.cat.Export())
	if err != nil {
		return fmt.Errorf("engine: serialize catalog: %w", err)
	}
	if err := writeSection(w, opts.Compression, catBytes); err != nil {
		return fmt.Errorf("engine: write catalog section: %w", err)
	}

	return nil
}

// LoadSnapshot replaces the engine's state from a snapshot stream.
//
// The catalog section is decoded and validated before either structure is
// touched, so a corrupt snapshot leaves the engine unchanged.
func (e *Engine) LoadSnapshot(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("engine: read snapshot header: %w", err)
	}
	if magic != snapshotMagic {
		return &ErrSnapshotFormat{Reason: fmt.Sprintf("bad magic %q", magic[:])}
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != snapshotVersion {
		return &ErrSnapshotFormat{Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	codecName, err := readName(r)
	if err != nil {
		return err
	}
	c, ok := codec.ByName(codecName)
	if !ok {
		return &ErrSnapshotFormat{Reason: fmt.Sprintf("unknown codec %q", codecName)}
	}

	compName, err := readName(r)
	if err != nil {
		return err
	}
	comp, ok := persistence.CompressionByName(compName)
	if !ok {
		return &ErrSnapshotFormat{Reason: fmt.Sprintf("unknown compression %q", compName)}
	}

	indexBytes, err := readSection(r, comp)
	if err != nil {
		return fmt.Errorf("engine: read index section: %w", err)
	}
	catBytes, err := readSection(r, comp)
	if err != nil {
		return fmt.Errorf("engine: read catalog section: %w", err)
	}

	var catSnap catalog.Snapshot
	if err := c.Unmarshal(catBytes, &catSnap); err != nil {
		return fmt.Errorf("engine: decode catalog: %w", err)
	}

	// Validate the catalog section before mutating the index: both
	// ReadFrom implementations publish their new state atomically, so
	// once the catalog snapshot is known good no later step can fail and
	// leave the index and catalog out of step.
	if err := catSnap.Validate(); err != nil {
		return fmt.Errorf("engine: restore catalog: %w", err)
	}

	if _, err := e.idx.ReadFrom(bytes.NewReader(indexBytes)); err != nil {
		return fmt.Errorf("engine: restore index: %w", err)
	}
	if err := e.cat.Restore(catSnap); err != nil {
		return fmt.Errorf("engine: restore catalog: %w", err)
	}

	return nil
}

// PublishSnapshot serializes the engine state and writes it to the blob
// store under name. The blob is fully buffered before Put so a failed
// upload never leaves a truncated snapshot behind a working name.
func (e *Engine) PublishSnapshot(ctx context.Context, store blobstore.BlobStore, name string, optFns ...func(o *SnapshotOptions)) error {
	var buf bytes.Buffer
	if err := e.SaveSnapshot(&buf, optFns...); err != nil {
		return err
	}
	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("engine: publish snapshot %q: %w", name, err)
	}

	e.logger.InfoContext(ctx, "snapshot published",
		"name", name,
		"bytes", buf.Len(),
		"entries", e.idx.Size(),
		"landmarks", e.cat.Len(),
	)
	return nil
}

// LoadSnapshotBlob restores the engine state from a blob store snapshot.
func (e *Engine) LoadSnapshotBlob(ctx context.Context, store blobstore.BlobStore, name string) error {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("engine: open snapshot %q: %w", name, err)
	}
	defer blob.Close()

	data, err := blobstore.ReadAll(blob)
	if err != nil {
		return fmt.Errorf("engine: read snapshot %q: %w", name, err)
	}

	if err := e.LoadSnapshot(bytes.NewReader(data)); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "snapshot loaded",
		"name", name,
		"bytes", len(data),
		"entries", e.idx.Size(),
		"landmarks", e.cat.Len(),
	)
	return nil
}

func writeName(w io.Writer, name string) error {
	if len(name) > 255 {
		return fmt.Errorf("engine: name %q too long", name)
	}
	if _, err := w.Write([]byte{byte(len(name))}); err != nil {
		return err
	}
	_, err := io.WriteString(w, name)
	return err
}

func readName(r io.Reader) (string, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	buf := make([]byte, n[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeSection(w io.Writer, comp persistence.Compression, data []byte) error {
	compressed, err := persistence.Compress(comp, data)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := w.Write(compressed); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, persistence.ComputeChecksum(compressed))
}

func readSection(r io.Reader, comp persistence.Compression) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}

	compressed := make([]byte, length)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}

	var sum uint32
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return nil, err
	}
	if actual := persistence.ComputeChecksum(compressed); actual != sum {
		return nil, &persistence.ChecksumMismatchError{Expected: sum, Actual: actual}
	}

	return persistence.Decompress(comp, compressed)
}
