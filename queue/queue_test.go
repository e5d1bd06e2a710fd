package queue

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	t.Run("MaxHeapOrdering", func(t *testing.T) {
		pq := &PriorityQueue{}
		heap.Init(pq)

		heap.Push(pq, &PriorityQueueItem{ID: 1, Score: 0.5})
		heap.Push(pq, &PriorityQueueItem{ID: 2, Score: 0.9})
		heap.Push(pq, &PriorityQueueItem{ID: 3, Score: 0.1})

		require.Equal(t, 3, pq.Len())
		assert.Equal(t, uint32(2), pq.Top().ID)

		item, _ := heap.Pop(pq).(*PriorityQueueItem)
		assert.Equal(t, float32(0.9), item.Score)
		item, _ = heap.Pop(pq).(*PriorityQueueItem)
		assert.Equal(t, float32(0.5), item.Score)
		item, _ = heap.Pop(pq).(*PriorityQueueItem)
		assert.Equal(t, float32(0.1), item.Score)
	})

	t.Run("MinHeapOrdering", func(t *testing.T) {
		pq := &PriorityQueue{Min: true}
		heap.Init(pq)

		heap.Push(pq, &PriorityQueueItem{ID: 1, Score: 0.5})
		heap.Push(pq, &PriorityQueueItem{ID: 2, Score: 0.9})
		heap.Push(pq, &PriorityQueueItem{ID: 3, Score: 0.1})

		assert.Equal(t, uint32(3), pq.Top().ID)
	})

	t.Run("EqualScoresBreakByID", func(t *testing.T) {
		// Max-heap: lower ID wins on ties.
		pq := &PriorityQueue{}
		heap.Init(pq)
		heap.Push(pq, &PriorityQueueItem{ID: 7, Score: 0.5})
		heap.Push(pq, &PriorityQueueItem{ID: 2, Score: 0.5})
		assert.Equal(t, uint32(2), pq.Top().ID)

		// Min-heap: higher ID sits at the root, so bounded top-k evicts the
		// later insertion first and the earlier entry survives.
		mpq := &PriorityQueue{Min: true}
		heap.Init(mpq)
		heap.Push(mpq, &PriorityQueueItem{ID: 2, Score: 0.5})
		heap.Push(mpq, &PriorityQueueItem{ID: 7, Score: 0.5})
		assert.Equal(t, uint32(7), mpq.Top().ID)
	})

	t.Run("PopEmpty", func(t *testing.T) {
		pq := &PriorityQueue{}
		assert.Nil(t, pq.Pop())
	})
}
