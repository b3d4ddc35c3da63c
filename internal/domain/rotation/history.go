package rotation

import (
	"sync"
	"time"
)

// HistoryLog is a bounded, insertion-ordered log of every photo ever selected
// into a current set. When capacity is exceeded the oldest entries are
// evicted first.
type HistoryLog struct {
	mu         sync.RWMutex
	entries    []HistoryEntry
	maxEntries int
}

// NewHistoryLog creates a history log holding up to maxEntries entries.
// Non-positive values fall back to DefaultMaxHistory.
func NewHistoryLog(maxEntries int) *HistoryLog {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxHistory
	}
	return &HistoryLog{
		entries:    []HistoryEntry{},
		maxEntries: maxEntries,
	}
}

// Record converts a photo into a HistoryEntry and appends it. Malformed
// photos degrade to the documented fallback values; recording never fails.
func (h *HistoryLog) Record(p Photo, servedAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, newHistoryEntry(p, servedAt))

	// Trim to max entries, oldest first
	if len(h.entries) > h.maxEntries {
		h.entries = append(h.entries[:0:0], h.entries[len(h.entries)-h.maxEntries:]...)
	}
}

// Snapshot returns the entries oldest-first without mutating the log.
// Callers wanting most-recent-first display must reverse.
func (h *HistoryLog) Snapshot() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := make([]HistoryEntry, len(h.entries))
	copy(entries, h.entries)
	return entries
}

// Len returns the number of recorded entries.
func (h *HistoryLog) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
