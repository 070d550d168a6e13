package agent

import (
	"sync"
	"time"
)

// HistoryEntry is an append-only record of one sync attempt. ActionID is
// set for per-action attempts and empty for whole-cycle summaries;
// ChangesCount is set only on summaries.
type HistoryEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ActionID     string    `json:"action_id,omitempty"`
	ActionType   string    `json:"action_type,omitempty"`
	Error        string    `json:"error,omitempty"`
	ChangesCount int       `json:"changes_count,omitempty"`
}

// historyRing keeps the most recent N history entries. Entries are never
// mutated after append.
type historyRing struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	next    int
	full    bool
}

func newHistoryRing(capacity int) *historyRing {
	if capacity <= 0 {
		capacity = 50
	}
	return &historyRing{entries: make([]HistoryEntry, capacity)}
}

func (h *historyRing) append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// list returns retained entries, most recent first.
func (h *historyRing) list() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.next
	if h.full {
		size = len(h.entries)
	}
	out := make([]HistoryEntry, 0, size)
	for i := 1; i <= size; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}
