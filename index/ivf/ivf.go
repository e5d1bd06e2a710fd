// Package ivf provides an approximate partitioned vector index.
//
// The index clusters stored vectors into partitions around k-means
// centroids (an inverted-file layout). Queries probe only the NProbe
// partitions whose centroids are closest to the query, trading recall for
// speed. Within the probed partitions the comparison is exact and the
// deterministic insertion-order tie-break of the flat index is preserved.
//
// The recall floor is a function of NProbe/NumPartitions and is reported by
// RecallFloor at construction time. Until the first Rebuild the index is
// untrained and queries fall back to an exact scan (recall 1.0).
//
// Rebuild is the batch retraining operation; Insert never reclusters.
package ivf

import (
	"container/heap"
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/VijetHegde604/GeoGenie-backend/distance"
	"github.com/VijetHegde604/GeoGenie-backend/index"
	"github.com/VijetHegde604/GeoGenie-backend/model"
	"github.com/VijetHegde604/GeoGenie-backend/queue"
)

// Compile-time check to ensure IVF satisfies the index interface.
var _ index.Index = (*IVF)(nil)

// Options contains configuration options for the IVF index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	Dimension int

	// NumPartitions is the number of k-means partitions (nlist).
	NumPartitions int

	// NProbe is the number of partitions probed per query.
	NProbe int

	// KMeansIterations bounds the Lloyd iterations during Rebuild.
	KMeansIterations int

	// Seed makes centroid initialization deterministic.
	Seed int64

	// NormalizeVectors enables L2 normalization for stored vectors and
	// queries (cosine via dot product).
	NormalizeVectors bool
}

// DefaultOptions contains the default configuration options for the IVF index.
var DefaultOptions = Options{
	Dimension:        512,
	NumPartitions:    16,
	NProbe:           4,
	KMeansIterations: 10,
	Seed:             1,
	NormalizeVectors: true,
}

// indexState holds the immutable state of the index for lock-free reads.
type indexState struct {
	entries    []model.Entry
	postings   map[model.LandmarkID]*roaring.Bitmap
	centroids  [][]float32       // nil while untrained
	partitions []*roaring.Bitmap // entry IDs per centroid, nil while untrained
}

func (st *indexState) trained() bool { return len(st.centroids) > 0 }

// IVF represents an approximate partitioned index.
type IVF struct {
	state   atomic.Pointer[indexState]
	writeMu sync.Mutex
	opts    Options
}

// New creates a new instance of the IVF index.
func New(optFns ...func(o *Options)) (*IVF, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateDimension(opts.Dimension); err != nil {
		return nil, err
	}
	if opts.NumPartitions <= 0 {
		opts.NumPartitions = DefaultOptions.NumPartitions
	}
	if opts.NProbe <= 0 || opts.NProbe > opts.NumPartitions {
		opts.NProbe = min(DefaultOptions.NProbe, opts.NumPartitions)
	}
	if opts.KMeansIterations <= 0 {
		opts.KMeansIterations = DefaultOptions.KMeansIterations
	}

	ivf := &IVF{opts: opts}
	ivf.state.Store(&indexState{
		entries:  make([]model.Entry, 0),
		postings: make(map[model.LandmarkID]*roaring.Bitmap),
	})

	return ivf, nil
}

// Name returns the index type name.
func (*IVF) Name() string { return "IVF" }

// Dimension returns the fixed vector dimensionality.
func (ivf *IVF) Dimension() int { return ivf.opts.Dimension }

// Size returns the number of stored entries.
func (ivf *IVF) Size() int {
	return len(ivf.state.Load().entries)
}

// RecallFloor returns the documented lower bound on expected recall for
// the configured probe width. Untrained indexes scan exactly (1.0).
func (ivf *IVF) RecallFloor() float64 {
	return float64(ivf.opts.NProbe) / float64(ivf.opts.NumPartitions)
}

// Insert appends one entry and returns its assigned EntryID.
// On a trained index the entry joins the partition of its nearest
// centroid; partitions are never rebalanced here (see Rebuild).
func (ivf *IVF) Insert(e model.Entry) (model.EntryID, error) {
	if len(e.Vector) != ivf.opts.Dimension {
		return 0, &index.ErrDimensionMismatch{Expected: ivf.opts.Dimension, Actual: len(e.Vector)}
	}

	vec := e.Vector
	if ivf.opts.NormalizeVectors {
		if normalized, ok := distance.NormalizeL2Copy(vec); ok {
			vec = normalized
		}
	}

	ivf.writeMu.Lock()
	defer ivf.writeMu.Unlock()

	old := ivf.state.Load()
	id := model.EntryID(len(old.entries))

	entries := make([]model.Entry, len(old.entries), len(old.entries)+1)
	copy(entries, old.entries)
	entries = append(entries, model.Entry{
		ID:         id,
		LandmarkID: e.LandmarkID,
		Source:     e.Source,
		Vector:     vec,
	})

	postings := clonePostings(old.postings, e.LandmarkID, uint32(id))

	var partitions []*roaring.Bitmap
	if old.trained() {
		partitions = make([]*roaring.Bitmap, len(old.partitions))
		copy(partitions, old.partitions)
		p := nearestCentroid(old.centroids, vec)
		updated := partitions[p].Clone()
		updated.Add(uint32(id))
		partitions[p] = updated
	}

	ivf.state.Store(&indexState{
		entries:    entries,
		postings:   postings,
		centroids:  old.centroids,
		partitions: partitions,
	})

	return id, nil
}

// Query returns up to k entries ordered by descending similarity, ties
// broken by insertion order (earlier entry wins).
func (ivf *IVF) Query(q model.Vector, k int) ([]index.SearchResult, error) {
	return ivf.QueryFiltered(q, k, nil)
}

// QueryFiltered is Query restricted by a filter.
func (ivf *IVF) QueryFiltered(q model.Vector, k int, filter index.FilterFunc) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(q) != ivf.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: ivf.opts.Dimension, Actual: len(q)}
	}

	st := ivf.state.Load()
	if len(st.entries) == 0 {
		return []index.SearchResult{}, nil
	}

	query := q
	if ivf.opts.NormalizeVectors {
		if normalized, ok := distance.NormalizeL2Copy(q); ok {
			query = normalized
		}
	}

	pq := &queue.PriorityQueue{Min: true}
	score := func(e model.Entry) {
		if filter != nil && !filter(e.ID) {
			return
		}
		s := distance.Dot(query, e.Vector)
		if pq.Len() < k {
			heap.Push(pq, &queue.PriorityQueueItem{ID: uint32(e.ID), Score: s})
			return
		}
		if s > pq.Top().Score {
			heap.Pop(pq)
			heap.Push(pq, &queue.PriorityQueueItem{ID: uint32(e.ID), Score: s})
		}
	}

	if !st.trained() {
		// Untrained fallback: exact scan.
		for _, e := range st.entries {
			score(e)
		}
	} else {
		for _, p := range ivf.probeOrder(st.centroids, query) {
			it := st.partitions[p].Iterator()
			for it.HasNext() {
				score(st.entries[it.Next()])
			}
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
func (ivf *IVF) EntriesForLandmark(id model.LandmarkID) *roaring.Bitmap {
	st := ivf.state.Load()
	if bm, ok := st.postings[id]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// Entries returns a snapshot of the stored entries in insertion order.
func (ivf *IVF) Entries() []model.Entry {
	return ivf.state.Load().entries
}

// Rebuild retrains the coarse quantizer from the current entries and
// reassigns every entry to its nearest centroid. It is the batch
// counterpart to Insert and the only operation that moves entries between
// partitions. Queries remain served from the previous state until the new
// state is published.
func (ivf *IVF) Rebuild(ctx context.Context) error {
	ivf.writeMu.Lock()
	defer ivf.writeMu.Unlock()

	old := ivf.state.Load()
	if len(old.entries) == 0 {
		return nil
	}

	nlist := min(ivf.opts.NumPartitions, len(old.entries))
	centroids, err := ivf.kmeans(ctx, old.entries, nlist)
	if err != nil {
		return err
	}

	partitions := make([]*roaring.Bitmap, len(centroids))
	for i := range partitions {
		partitions[i] = roaring.New()
	}
	for _, e := range old.entries {
		partitions[nearestCentroid(centroids, e.Vector)].Add(uint32(e.ID))
	}

	ivf.state.Store(&indexState{
		entries:    old.entries,
		postings:   old.postings,
		centroids:  centroids,
		partitions: partitions,
	})

	return nil
}

// probeOrder returns the indexes of the NProbe centroids closest to the
// query, in descending similarity order.
func (ivf *IVF) probeOrder(centroids [][]float32, query []float32) []int {
	pq := &queue.PriorityQueue{Min: true}
	nprobe := min(ivf.opts.NProbe, len(centroids))
	for i, c := range centroids {
		s := distance.Dot(query, c)
		if pq.Len() < nprobe {
			heap.Push(pq, &queue.PriorityQueueItem{ID: uint32(i), Score: s})
			continue
		}
		if s > pq.Top().Score {
			heap.Pop(pq)
			heap.Push(pq, &queue.PriorityQueueItem{ID: uint32(i), Score: s})
		}
	}

	order := make([]int, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		item, _ := heap.Pop(pq).(*queue.PriorityQueueItem)
		order[i] = int(item.ID)
	}
	return order
}

// kmeans runs seeded Lloyd iterations over the entry vectors.
func (ivf *IVF) kmeans(ctx context.Context, entries []model.Entry, nlist int) ([][]float32, error) {
	dim := ivf.opts.Dimension
	rng := rand.New(rand.NewPCG(uint64(ivf.opts.Seed), 0))

	// Seed centroids from distinct entries.
	perm := rng.Perm(len(entries))
	centroids := make([][]float32, nlist)
	for i := 0; i < nlist; i++ {
		c := make([]float32, dim)
		copy(c, entries[perm[i]].Vector)
		centroids[i] = c
	}

	assign := make([]int, len(entries))
	for iter := 0; iter < ivf.opts.KMeansIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for i, e := range entries {
			p := nearestCentroid(centroids, e.Vector)
			if assign[i] != p {
				assign[i] = p
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([][]float32, nlist)
		counts := make([]int, nlist)
		for i := range sums {
			sums[i] = make([]float32, dim)
		}
		for i, e := range entries {
			p := assign[i]
			counts[p]++
			for j, v := range e.Vector {
				sums[p][j] += v
			}
		}
		for i := range centroids {
			if counts[i] == 0 {
				// Empty partition keeps its previous centroid.
				continue
			}
			inv := 1 / float32(counts[i])
			for j := range sums[i] {
				sums[i][j] *= inv
			}
			if ivf.opts.NormalizeVectors {
				distance.NormalizeL2InPlace(sums[i])
			}
			centroids[i] = sums[i]
		}
	}

	return centroids, nil
}

func nearestCentroid(centroids [][]float32, v []float32) int {
	best := 0
	bestScore := distance.Dot(v, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if s := distance.Dot(v, centroids[i]); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}

func clonePostings(old map[model.LandmarkID]*roaring.Bitmap, lm model.LandmarkID, id uint32) map[model.LandmarkID]*roaring.Bitmap {
	postings := make(map[model.LandmarkID]*roaring.Bitmap, len(old)+1)
	for k, v := range old {
		postings[k] = v
	}
	updated := roaring.New()
	if prev, ok := old[lm]; ok {
		updated = prev.Clone()
	}
	updated.Add(id)
	postings[lm] = updated
	return postings
}
