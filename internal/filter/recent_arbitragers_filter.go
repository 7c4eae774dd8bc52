// Package filter deduplicates repeated observations of the same
// arbitrage chain within a configurable window, grounded on
// original_source's RecentArbitragersFilter: a mapping from
// marketsSequence+roi to its last-seen timestamp, with a pop-then-reinsert
// update so a first observation is never reported as contained.
package filter

import (
	"fmt"
	"sync"
	"time"

	"github.com/patronarby/triarb/internal/types"
)

// RecentArbitragersFilter tracks the last-seen time of each
// (marketsSequence, roi) key. A single mutex is sufficient at the
// expected cardinality (thousands of distinct chains); EvictStale bounds
// memory for long-running processes.
type RecentArbitragersFilter struct {
	ttl time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// New builds a filter with the given deduplication window.
func New(ttl time.Duration) *RecentArbitragersFilter {
	return &RecentArbitragersFilter{
		ttl:      ttl,
		lastSeen: make(map[string]time.Time),
	}
}

func key(c types.Chain) string {
	return fmt.Sprintf("%s_roi_%v", c.MarketsSequence(), c.ROI)
}

// RegisterAndContained updates the chain's last-seen time to now and
// reports whether it was already seen within the TTL window. A chain
// observed for the first time is never contained.
func (f *RecentArbitragersFilter) RegisterAndContained(c types.Chain) bool {
	k := key(c)
	now := time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	previous, existed := f.lastSeen[k]
	f.lastSeen[k] = now
	if !existed {
		return false
	}
	return now.Sub(previous) < f.ttl
}

// EvictStale removes every entry last seen more than ttl ago, bounding
// memory growth across long-running processes. Safe to call periodically
// from its own goroutine.
func (f *RecentArbitragersFilter) EvictStale() {
	cutoff := time.Now().Add(-f.ttl)
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, seen := range f.lastSeen {
		if seen.Before(cutoff) {
			delete(f.lastSeen, k)
		}
	}
}

// Size reports the number of tracked keys, mainly for tests and metrics.
func (f *RecentArbitragersFilter) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lastSeen)
}
