package core

import (
	"context"
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// WorkItem is the closure a pool worker runs.
type WorkItem func(ctx context.Context)

// QueueItem is one accepted submission waiting for a worker.
type QueueItem struct {
	ID   TaskID
	Work WorkItem

	// Discard is called instead of Work when the item is dropped unrun,
	// e.g. on a forced shutdown. May be nil.
	Discard func()
}

// TaskQueue defines the interface for pool queues.
type TaskQueue interface {
	// Push appends item; it returns false when the queue is at capacity.
	Push(item QueueItem) bool
	Pop() (QueueItem, bool)
	Len() int
	IsEmpty() bool
	MaybeCompact()
	// Clear empties the queue and returns the dropped items in FIFO order.
	Clear() []QueueItem
}

// =============================================================================
// FIFOTaskQueue
// =============================================================================

// FIFOTaskQueue is a slice-backed FIFO queue, optionally bounded.
type FIFOTaskQueue struct {
	mu       sync.Mutex
	tasks    []QueueItem
	capacity int // 0 = unbounded
}

func NewFIFOTaskQueue() *FIFOTaskQueue {
	return NewBoundedFIFOTaskQueue(0)
}

// NewBoundedFIFOTaskQueue creates a queue holding at most capacity items.
// capacity <= 0 means unbounded.
func NewBoundedFIFOTaskQueue(capacity int) *FIFOTaskQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &FIFOTaskQueue{
		tasks:    make([]QueueItem, 0, defaultQueueCap),
		capacity: capacity,
	}
}

func (q *FIFOTaskQueue) Push(item QueueItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.tasks) >= q.capacity {
		return false
	}
	q.tasks = append(q.tasks, item)
	return true
}

func (q *FIFOTaskQueue) Pop() (QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return QueueItem{}, false
	}

	item := q.tasks[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.tasks[0] = QueueItem{}
	q.tasks = q.tasks[1:]
	q.maybeCompactLocked()

	return item, true
}

func (q *FIFOTaskQueue) MaybeCompact() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeCompactLocked()
}

func (q *FIFOTaskQueue) maybeCompactLocked() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]QueueItem, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]QueueItem, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}

func (q *FIFOTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *FIFOTaskQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Capacity returns the queue bound, 0 when unbounded.
func (q *FIFOTaskQueue) Capacity() int {
	return q.capacity
}

func (q *FIFOTaskQueue) Clear() []QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := q.tasks
	q.tasks = make([]QueueItem, 0, defaultQueueCap)
	return dropped
}
