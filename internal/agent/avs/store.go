// Package avs implements the Applied-Versions Store: the durable,
// insertion-ordered record of which subdoc version is currently applied
// on the device.
package avs

import (
	"log/slog"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

// Store is the process-wide Applied-Versions Store. It is owned by a
// single writer (the dispatcher goroutine); reads from other goroutines
// must go through Lookup/Snapshot, which take the internal lock.
type Store struct {
	mu      sync.RWMutex
	order   []string // insertion order of names, for deterministic Snapshot/serialize
	entries map[string]domain.AppliedEntry

	cache *lru.Cache[string, domain.AppliedEntry]

	logger *slog.Logger
}

// New returns an empty Store. cacheSize<=0 disables the read-through LRU
// cache in front of Lookup.
func New(cacheSize int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		entries: make(map[string]domain.AppliedEntry),
		logger:  logger,
	}
	if cacheSize > 0 {
		c, err := lru.New[string, domain.AppliedEntry](cacheSize)
		if err != nil {
			logger.Warn("avs: failed to build lookup cache, continuing without one", "error", err)
		} else {
			s.cache = c
		}
	}
	return s
}

// Upsert overwrites the entry for name if it exists, or appends a new one.
func (s *Store) Upsert(name string, version uint32, status string, errorCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := domain.AppliedEntry{Name: name, Version: version, Status: status, ErrorCode: errorCode}
	if _, exists := s.entries[name]; !exists {
		s.order = append(s.order, name)
	}
	s.entries[name] = entry
	if s.cache != nil {
		s.cache.Add(name, entry)
	}
}

// Lookup returns the entry for name, consulting the read-through cache
// first.
func (s *Store) Lookup(name string) (domain.AppliedEntry, bool) {
	if s.cache != nil {
		if entry, ok := s.cache.Get(name); ok {
			return entry, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[name]
	if ok && s.cache != nil {
		s.cache.Add(name, entry)
	}
	return entry, ok
}

// VersionMatches reports whether the stored entry for name has exactly
// the given version, used by the dispatcher's CRASH handler to decide
// whether a retry is needed.
func (s *Store) VersionMatches(name string, version uint32) bool {
	entry, ok := s.Lookup(name)
	return ok && entry.Version == version
}

// Snapshot returns the entries in insertion order.
func (s *Store) Snapshot() []domain.AppliedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AppliedEntry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name])
	}
	return out
}

// Len reports the number of distinct names tracked.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Load populates the store from a previously persisted blob, replacing
// any in-memory state. A missing file is not an error: the store is left
// empty.
func Load(path string, cacheSize int, logger *slog.Logger) (*Store, error) {
	s := New(cacheSize, logger)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	entries, err := decodeBlob(data)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		s.order = append(s.order, e.Name)
		s.entries[e.Name] = e
	}
	return s, nil
}
