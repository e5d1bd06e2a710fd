package ivf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// Binary stream layout (little-endian):
//
//	[0:4]   magic "IVX1"
//	[4:6]   format version
//	[6:10]  dimension
//	[10:14] entry count
//	[14:18] centroid count (0 while untrained)
//	entries (same per-entry layout as the flat index)
//	centroids, each dimension * float32
//
// Partitions are not persisted; assignment is a pure function of the
// centroids, so reassigning on load reproduces identical query results.
var binaryMagic = [4]byte{'I', 'V', 'X', '1'}

const binaryVersion = uint16(1)

// WriteTo serializes the index entries and centroids as a binary stream.
func (ivf *IVF) WriteTo(w io.Writer) (int64, error) {
	st := ivf.state.Load()

	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	var hdr [18]byte
	copy(hdr[0:4], binaryMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], binaryVersion)
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(ivf.opts.Dimension))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(len(st.entries)))
	binary.LittleEndian.PutUint32(hdr[14:18], uint32(len(st.centroids)))
	if _, err := cw.Write(hdr[:]); err != nil {
		return cw.n, err
	}

	var entryHdr [13]byte
	vecBuf := make([]byte, 4*ivf.opts.Dimension)
	writeVec := func(v []float32) error {
		for i, f := range v {
			binary.LittleEndian.PutUint32(vecBuf[i*4:], math.Float32bits(f))
		}
		_, err := cw.Write(vecBuf)
		return err
	}

	for _, e := range st.entries {
		binary.LittleEndian.PutUint32(entryHdr[0:4], uint32(e.ID))
		binary.LittleEndian.PutUint64(entryHdr[4:12], uint64(e.LandmarkID))
		entryHdr[12] = byte(e.Source)
		if _, err := cw.Write(entryHdr[:]); err != nil {
			return cw.n, err
		}
		if err := writeVec(e.Vector); err != nil {
			return cw.n, err
		}
	}

	for _, c := range st.centroids {
		if err := writeVec(c); err != nil {
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
func (ivf *IVF) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: bufio.NewReader(r)}

	var hdr [18]byte
	if _, err := io.ReadFull(cr, hdr[:]); err != nil {
		return cr.n, err
	}
	if [4]byte(hdr[0:4]) != binaryMagic {
		return cr.n, fmt.Errorf("ivf: invalid magic %q", hdr[0:4])
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != binaryVersion {
		return cr.n, fmt.Errorf("ivf: unsupported format version %d", v)
	}

	dim := int(binary.LittleEndian.Uint32(hdr[6:10]))
	if dim != ivf.opts.Dimension {
		return cr.n, &index.ErrDimensionMismatch{Expected: ivf.opts.Dimension, Actual: dim}
	}
	entryCount := int(binary.LittleEndian.Uint32(hdr[10:14]))
	centroidCount := int(binary.LittleEndian.Uint32(hdr[14:18]))

	vecBuf := make([]byte, 4*dim)
	readVec := func() ([]float32, error) {
		if _, err := io.ReadFull(cr, vecBuf); err != nil {
			return nil, err
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecBuf[j*4:]))
		}
		return v, nil
	}

	entries := make([]model.Entry, 0, entryCount)
	var entryHdr [13]byte
	for i := 0; i < entryCount; i++ {
		if _, err := io.ReadFull(cr, entryHdr[:]); err != nil {
			return cr.n, err
		}
		vec, err := readVec()
		if err != nil {
			return cr.n, err
		}

		// Entry IDs double as positions in the entry slice, so the
		// stream must carry them dense and in order.
		id := model.EntryID(binary.LittleEndian.Uint32(entryHdr[0:4]))
		if id != model.EntryID(i) {
			return cr.n, fmt.Errorf("ivf: entry id %d at position %d, ids must be dense", id, i)
		}

		entries = append(entries, model.Entry{
			ID:         id,
			LandmarkID: model.LandmarkID(binary.LittleEndian.Uint64(entryHdr[4:12])),
			Source:     model.EntrySource(entryHdr[12]),
			Vector:     vec,
		})
	}

	centroids := make([][]float32, 0, centroidCount)
	for i := 0; i < centroidCount; i++ {
		c, err := readVec()
		if err != nil {
			return cr.n, err
		}
		centroids = append(centroids, c)
	}

	postings := make(map[model.LandmarkID]*roaring.Bitmap)
	for _, e := range entries {
		bm, ok := postings[e.LandmarkID]
		if !ok {
			bm = roaring.New()
			postings[e.LandmarkID] = bm
		}
		bm.Add(uint32(e.ID))
	}

	var partitions []*roaring.Bitmap
	if len(centroids) > 0 {
		partitions = make([]*roaring.Bitmap, len(centroids))
		for i := range partitions {
			partitions[i] = roaring.New()
		}
		for _, e := range entries {
			partitions[nearestCentroid(centroids, e.Vector)].Add(uint32(e.ID))
		}
	}

	ivf.writeMu.Lock()
	defer ivf.writeMu.Unlock()
	ivf.state.Store(&indexState{
		entries:    entries,
		postings:   postings,
		centroids:  centroids,
		partitions: partitions,
	})

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
