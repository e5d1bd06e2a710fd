package flat

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// Binary stream layout (little-endian):
//
//	[0:4]  magic "FLX1"
//	[4:6]  format version
//	[6:10] dimension
//	[10:14] entry count
//	entries, each:
//	  [0:4]   entry id
//	  [4:12]  landmark id
//	  [12:13] source
//	  [13:..] dimension * float32 vector (raw IEEE-754 bits)
//
// Vector bits are written exactly as stored, so a round trip reproduces
// byte-identical query results.
var binaryMagic = [4]byte{'F', 'L', 'X', '1'}

const binaryVersion = uint16(1)

// WriteTo serializes the index entries as a binary stream.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	st := f.state.Load()

	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	var hdr [14]byte
	copy(hdr[0:4], binaryMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], binaryVersion)
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(f.opts.Dimension))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(len(st.entries)))
	if _, err := cw.Write(hdr[:]); err != nil {
		return cw.n, err
	}

	var entryHdr [13]byte
	vecBuf := make([]byte, 4*f.opts.Dimension)
	for _, e := range st.entries {
		binary.LittleEndian.PutUint32(entryHdr[0:4], uint32(e.ID))
		binary.LittleEndian.PutUint64(entryHdr[4:12], uint64(e.LandmarkID))
		entryHdr[12] = byte(e.Source)
		if _, err := cw.Write(entryHdr[:]); err != nil {
			return cw.n, err
		}

		for i, v := range e.Vector {
			binary.LittleEndian.PutUint32(vecBuf[i*4:], math.Float32bits(v))
		}
		if _, err := cw.Write(vecBuf); err != nil {
			return cw.n, err
		}
	}

	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadFrom replaces the index contents from a binary stream produced by
// WriteTo. The stream's dimension must match the configured dimension.
func (f *Flat) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: bufio.NewReader(r)}

	var hdr [14]byte
	if _, err := io.ReadFull(cr, hdr[:]); err != nil {
		return cr.n, err
	}
	if [4]byte(hdr[0:4]) != binaryMagic {
		return cr.n, fmt.Errorf("flat: invalid magic %q", hdr[0:4])
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != binaryVersion {
		return cr.n, fmt.Errorf("flat: unsupported format version %d", v)
	}

	dim := int(binary.LittleEndian.Uint32(hdr[6:10]))
	if dim != f.opts.Dimension {
		return cr.n, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: dim}
	}
	count := int(binary.LittleEndian.Uint32(hdr[10:14]))

	entries := make([]model.Entry, 0, count)
	var entryHdr [13]byte
	vecBuf := make([]byte, 4*dim)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(cr, entryHdr[:]); err != nil {
			return cr.n, err
		}
		if _, err := io.ReadFull(cr, vecBuf); err != nil {
			return cr.n, err
		}

		// Entry IDs double as positions in the entry slice, so the
		// stream must carry them dense and in order.
		id := model.EntryID(binary.LittleEndian.Uint32(entryHdr[0:4]))
		if id != model.EntryID(i) {
			return cr.n, fmt.Errorf("flat: entry id %d at position %d, ids must be dense", id, i)
		}

		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecBuf[j*4:]))
		}

		entries = append(entries, model.Entry{
			ID:         id,
			LandmarkID: model.LandmarkID(binary.LittleEndian.Uint64(entryHdr[4:12])),
			Source:     model.EntrySource(entryHdr[12]),
			Vector:     vec,
		})
	}

	f.replaceEntries(entries)
	return cr.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
