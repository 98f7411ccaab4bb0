package ledger

import (
	"sync"

	"quant-desk/internal/types"
)

const DefaultActivityCap = 200

// activityLog is a fixed-size ring of the most recent entries.
type activityLog struct {
	mu      sync.RWMutex
	entries []types.ActivityEntry
	next    int
	full    bool
}

func newActivityLog(capacity int) *activityLog {
	if capacity <= 0 {
		capacity = DefaultActivityCap
	}
	return &activityLog{entries: make([]types.ActivityEntry, capacity)}
}

func (a *activityLog) add(e types.ActivityEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

// recent returns up to n entries, newest first. n <= 0 returns everything.
func (a *activityLog) recent(n int) []types.ActivityEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	size := a.next
	if a.full {
		size = len(a.entries)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]types.ActivityEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (a.next - i + len(a.entries)) % len(a.entries)
		out = append(out, a.entries[idx])
	}
	return out
}
