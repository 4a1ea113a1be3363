// Package ptl implements the Pending/Tmp List: bookkeeping for subdocs
// whose apply is currently in-flight or has most recently failed without
// a final ACK.
package ptl

import (
	"sync"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

// List is the process-wide Pending/Tmp List.
type List struct {
	mu      sync.RWMutex
	entries map[string]domain.PendingEntry
}

// New returns an empty List.
func New() *List {
	return &List{entries: make(map[string]domain.PendingEntry)}
}

// Update is upsert semantics: it overwrites any existing entry for name.
func (l *List) Update(name string, version uint32, status, errorCode string) domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[name] = domain.PendingEntry{Name: name, Version: version, Status: status, ErrorCode: errorCode}
	return domain.StatusSuccess
}

// Delete removes the entry for name. Absent is a no-op success.
func (l *List) Delete(name string) domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, name)
	return domain.StatusSuccess
}

// Get returns the entry for name, if present.
func (l *List) Get(name string) (domain.PendingEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[name]
	return e, ok
}

// Len reports the number of in-flight subdocs.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of every entry, unordered (the PTL has no
// ordering requirement, unlike the AVS).
func (l *List) Snapshot() []domain.PendingEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.PendingEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	return out
}
