package service

import "sync"

// BusyTracker counts in-flight operations per key. Keys follow the
// "<entity>.load" / "<entity>.save" convention so concurrent loads and
// saves of different entities never mask each other.
type BusyTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewBusyTracker() *BusyTracker {
	return &BusyTracker{counts: make(map[string]int)}
}

// Begin marks one operation in flight for key
func (b *BusyTracker) Begin(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[key]++
}

// End marks one operation finished for key
func (b *BusyTracker) End(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counts[key] > 1 {
		b.counts[key]--
		return
	}
	delete(b.counts, key)
}

// Busy reports whether any operation is in flight for key
func (b *BusyTracker) Busy(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[key] > 0
}

// Snapshot returns the current in-flight counts
func (b *BusyTracker) Snapshot() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}
