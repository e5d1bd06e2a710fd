// Package queue implements the priority queue used for top-k selection.
package queue

import "container/heap"

// Compile time check to ensure PriorityQueue satisfies the heap interface.
var _ heap.Interface = (*PriorityQueue)(nil)

// PriorityQueueItem represents an item in the priority queue.
type PriorityQueueItem struct {
	ID    uint32  // ID is the entry identifier of the item.
	Score float32 // Score is the priority of the item in the queue.
	Index int     // Index is maintained by the heap.Interface methods.
}

// PriorityQueue implements heap.Interface and holds PriorityQueueItems.
//
// With Min unset the queue is a max-heap on Score; with Min set it is a
// min-heap, which is the shape used for bounded top-k selection (the root
// is the weakest candidate and gets evicted first).
//
// Equal scores order by ID: in a min-heap the higher ID sits closer to the
// root, so on eviction the earlier-inserted entry survives. This is what
// makes top-k results deterministic.
type PriorityQueue struct {
	Min   bool                 // Min selects min-heap ordering.
	Items []*PriorityQueueItem // Items contains the elements of the priority queue.
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.Items) }

// Less reports whether the element with index i should sort before the
// element with index j.
func (pq *PriorityQueue) Less(i, j int) bool {
	a, b := pq.Items[i], pq.Items[j]
	if a.Score == b.Score {
		if pq.Min {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	}
	if pq.Min {
		return a.Score < b.Score
	}
	return a.Score > b.Score
}

// Swap swaps the elements with indexes i and j.
func (pq *PriorityQueue) Swap(i, j int) {
	pq.Items[i], pq.Items[j] = pq.Items[j], pq.Items[i]
	pq.Items[i].Index, pq.Items[j].Index = i, j
}

// Push adds x to the priority queue.
func (pq *PriorityQueue) Push(x any) {
	item, _ := x.(*PriorityQueueItem)
	item.Index = len(pq.Items)
	pq.Items = append(pq.Items, item)
}

// Pop removes and returns the top element from the priority queue.
func (pq *PriorityQueue) Pop() any {
	if len(pq.Items) == 0 {
		return nil
	}

	old := pq.Items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	pq.Items = old[:n-1]

	return item
}

// Top returns the top element of the priority queue without removing it.
func (pq *PriorityQueue) Top() *PriorityQueueItem {
	return pq.Items[0]
}
