// Package readstate tracks which notifications the dashboard user has
// marked read. The set is ordered and capacity-bounded: trimming
// always drops the oldest marks first, so the most recently read
// notifications are never lost. It is persisted as an explicit
// ordered list to keep eviction deterministic.
package readstate

import "sync"

// DefaultCapacity bounds the persisted read-mark list.
const DefaultCapacity = 500

// Tracker is an ordered, capacity-bounded set of read notification IDs.
type Tracker struct {
	mu       sync.RWMutex
	capacity int
	ids      []string
	index    map[string]struct{}
}

// NewTracker creates a tracker with the given capacity. Non-positive
// capacities fall back to DefaultCapacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		capacity: capacity,
		index:    make(map[string]struct{}),
	}
}

// Load replaces the tracker contents with a persisted ordered list,
// oldest first. Lists longer than the capacity keep only the newest
// entries. Duplicates keep their last position.
func (t *Tracker) Load(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ids = t.ids[:0]
	t.index = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		t.markLocked(id)
	}
}

// MarkRead records a notification as read. Re-marking an existing ID
// refreshes it to most-recent so it survives future trims. Returns
// the IDs evicted to stay within capacity, oldest first.
func (t *Tracker) MarkRead(id string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.markLocked(id)
}

func (t *Tracker) markLocked(id string) []string {
	if _, ok := t.index[id]; ok {
		for i, existing := range t.ids {
			if existing == id {
				t.ids = append(t.ids[:i], t.ids[i+1:]...)
				break
			}
		}
	}
	t.ids = append(t.ids, id)
	t.index[id] = struct{}{}

	var evicted []string
	for len(t.ids) > t.capacity {
		oldest := t.ids[0]
		t.ids = t.ids[1:]
		delete(t.index, oldest)
		evicted = append(evicted, oldest)
	}
	return evicted
}

// IsRead reports whether a notification has been marked read.
func (t *Tracker) IsRead(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[id]
	return ok
}

// IDs returns the read marks in insertion order, oldest first. The
// returned slice is a copy suitable for persisting.
func (t *Tracker) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Len returns the number of read marks.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}
