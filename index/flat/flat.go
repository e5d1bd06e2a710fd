// Package flat provides an exact brute-force vector index.
//
// The index compares the query against every stored vector, which keeps
// recall at 100% and is the correctness baseline the approximate IVF index
// is validated against. It uses a copy-on-write pattern for lock-free
// concurrent reads: queries load an immutable state pointer while a single
// write mutex serializes inserts.
package flat

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/VijetHegde604/GeoGenie-backend/distance"
	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/model"
	"github.com/VijetHegde604/GeoGenie-backend/queue"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.Index = (*Flat)(nil)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and queries.
	Dimension int

	// NormalizeVectors enables L2 normalization for stored vectors and
	// queries so that the dot product equals cosine similarity.
	// Enabled by default; CLIP-style embeddings arrive normalized but
	// normalizing again is idempotent and guards against sloppy callers.
	NormalizeVectors bool
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Dimension:        512,
	NormalizeVectors: true,
}

// indexState holds the immutable state of the index for lock-free reads.
// Entries are append-only; postings maps a landmark to the IDs of its entries.
type indexState struct {
	entries  []model.Entry
	postings map[model.LandmarkID]*roaring.Bitmap
}

// Flat represents a brute-force exact index.
type Flat struct {
	state   atomic.Pointer[indexState] // immutable state for lock-free reads
	writeMu sync.Mutex                 // serializes writes only
	opts    Options
}

// New creates a new instance of the flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateDimension(opts.Dimension); err != nil {
		return nil, err
	}

	f := &Flat{opts: opts}
	f.state.Store(&indexState{
		entries:  make([]model.Entry, 0),
		postings: make(map[model.LandmarkID]*roaring.Bitmap),
	})

	return f, nil
}

// Name returns the index type name.
func (*Flat) Name() string { return "Flat" }

// Dimension returns the fixed vector dimensionality.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Size returns the number of stored entries.
func (f *Flat) Size() int {
	return len(f.state.Load().entries)
}

// Insert appends one entry and returns its assigned EntryID.
// Safe to call while queries are in flight: readers observe either the
// pre- or post-insert state, never a torn entry.
func (f *Flat) Insert(e model.Entry) (model.EntryID, error) {
	if len(e.Vector) != f.opts.Dimension {
		return 0, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(e.Vector)}
	}

	vec := e.Vector
	if f.opts.NormalizeVectors {
		if normalized, ok := distance.NormalizeL2Copy(vec); ok {
			vec = normalized
		}
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	old := f.state.Load()
	id := model.EntryID(len(old.entries))

	entries := make([]model.Entry, len(old.entries), len(old.entries)+1)
	copy(entries, old.entries)
	entries = append(entries, model.Entry{
		ID:         id,
		LandmarkID: e.LandmarkID,
		Source:     e.Source,
		Vector:     vec,
	})

	// Share unmodified posting lists; clone only the one being updated so
	// in-flight readers never see a bitmap mutate under them.
	postings := make(map[model.LandmarkID]*roaring.Bitmap, len(old.postings)+1)
	for lm, bm := range old.postings {
		postings[lm] = bm
	}
	updated := roaring.New()
	if prev, ok := old.postings[e.LandmarkID]; ok {
		updated = prev.Clone()
	}
	updated.Add(uint32(id))
	postings[e.LandmarkID] = updated

	f.state.Store(&indexState{entries: entries, postings: postings})

	return id, nil
}

// Query returns up to k entries ordered by descending similarity, ties
// broken by insertion order (earlier entry wins).
func (f *Flat) Query(q model.Vector, k int) ([]index.SearchResult, error) {
	return f.QueryFiltered(q, k, nil)
}

// QueryFiltered is Query restricted by a filter. A nil filter admits
// every entry.
func (f *Flat) QueryFiltered(q model.Vector, k int, filter index.FilterFunc) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(q) != f.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(q)}
	}

	st := f.state.Load()
	if len(st.entries) == 0 {
		return []index.SearchResult{}, nil
	}

	query := q
	if f.opts.NormalizeVectors {
		if normalized, ok := distance.NormalizeL2Copy(q); ok {
			query = normalized
		}
	}

	// Bounded min-heap: the root is the weakest kept candidate.
	pq := &queue.PriorityQueue{Min: true}
	for _, e := range st.entries {
		if filter != nil && !filter(e.ID) {
			continue
		}

		score := distance.Dot(query, e.Vector)
		if pq.Len() < k {
			heap.Push(pq, &queue.PriorityQueueItem{ID: uint32(e.ID), Score: score})
			continue
		}

		top := pq.Top()
		// Strict improvement only: on equal score the incumbent (earlier
		// insertion) wins, keeping result ordering deterministic.
		if score > top.Score {
			heap.Pop(pq)
			heap.Push(pq, &queue.PriorityQueueItem{ID: uint32(e.ID), Score: score})
		}
	}

	results := make([]index.SearchResult, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		item, _ := heap.Pop(pq).(*queue.PriorityQueueItem)
		id := model.EntryID(item.ID)
		results[i] = index.SearchResult{
			ID:         id,
			LandmarkID: st.entries[id].LandmarkID,
			Score:      item.Score,
		}
	}

	return results, nil
}

// EntriesForLandmark returns a copy of the posting list for the landmark.
func (f *Flat) EntriesForLandmark(id model.LandmarkID) *roaring.Bitmap {
	st := f.state.Load()
	if bm, ok := st.postings[id]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// Entries returns a snapshot of the stored entries in insertion order.
// The returned slice shares vector storage with the index; entries are
// immutable so callers must not modify them.
func (f *Flat) Entries() []model.Entry {
	return f.state.Load().entries
}

// replaceEntries swaps the full index contents. Used by ReadFrom.
func (f *Flat) replaceEntries(entries []model.Entry) {
	postings := make(map[model.LandmarkID]*roaring.Bitmap)
	for _, e := range entries {
		bm, ok := postings[e.LandmarkID]
		if !ok {
			bm = roaring.New()
			postings[e.LandmarkID] = bm
		}
		bm.Add(uint32(e.ID))
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	f.state.Store(&indexState{entries: entries, postings: postings})
}
