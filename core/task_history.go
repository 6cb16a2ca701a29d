package core

import "sync"

const defaultTaskHistoryCapacity = 100

// executionHistory keeps the newest records of a runner, up to capacity.
// Storage grows with use and is reused in place once full, so a runner that
// runs a handful of tasks never holds a full-capacity buffer.
type executionHistory struct {
	mu       sync.Mutex
	capacity int
	records  []TaskExecutionRecord
	oldest   int // index of the oldest record once records is full
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &executionHistory{capacity: capacity}
}

func (h *executionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) < h.capacity {
		h.records = append(h.records, record)
		return
	}
	h.records[h.oldest] = record
	h.oldest = (h.oldest + 1) % h.capacity
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (h *executionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.records)
	if n == 0 {
		return nil
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]TaskExecutionRecord, limit)
	for i := range out {
		out[i] = h.records[h.newestIndex(i)]
	}
	return out
}

func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return TaskExecutionRecord{}, false
	}
	return h.records[h.newestIndex(0)], true
}

// newestIndex maps age (0 = newest) to a slot. Callers hold mu.
func (h *executionHistory) newestIndex(age int) int {
	n := len(h.records)
	return (h.oldest + n - 1 - age) % n
}
