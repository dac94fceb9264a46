package store

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// History keeps the most recent terminal job snapshots.
//
// Entries are keyed by job id and only ever added, never read through Get, so the
// LRU order is plain insertion order and eviction always drops the oldest entry.
type History struct {
	mu       sync.Mutex
	entries  *lru.Cache
	capacity int
}

// NewHistory returns an empty history holding at most capacity entries.
func NewHistory(capacity int) (*History, error) {
	entries, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	return &History{entries: entries, capacity: capacity}, nil
}

// Push records entry as the newest one. capacity is the limit in force at the
// time of the push; when it differs from the previous limit the history is
// resized first, evicting the oldest entries if it shrank.
func (h *History) Push(entry HistoryEntry, capacity int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if capacity > 0 && capacity != h.capacity {
		h.entries.Resize(capacity)
		h.capacity = capacity
	}
	h.entries.Add(entry.Job.ID, entry)
}

// List returns the entries, most recent first.
func (h *History) List() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys := h.entries.Keys()
	out := make([]HistoryEntry, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := h.entries.Peek(keys[i]); ok {
			out = append(out, v.(HistoryEntry))
		}
	}
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries.Len()
}
