package engine

import (
	"sync"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
)

// BundleCache holds the most recently fetched multipart bundle's parsed
// entries, implementing retry.BundleCache. It is replaced wholesale on
// every successful fetch; the retry engine only ever reads the current
// snapshot. It also implements agent.GlobalTxIDSource: the bundle's own
// transaction id is the stable correlation id every notification raised
// while applying it should share.
type BundleCache struct {
	mu        sync.RWMutex
	entries   []domain.MultipartEntry
	bundleTxID string
}

// NewBundleCache returns an empty cache.
func NewBundleCache() *BundleCache {
	return &BundleCache{}
}

// Set replaces the cached entries with a freshly fetched bundle's,
// recording bundleTxID as the id that bundle's notifications share.
func (c *BundleCache) Set(bundleTxID string, entries []domain.MultipartEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundleTxID = bundleTxID
	c.entries = entries
}

// Entries implements retry.BundleCache.
func (c *BundleCache) Entries() []domain.MultipartEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries
}

// CurrentGlobalTxID implements agent.GlobalTxIDSource. It returns "" if
// no bundle has been fetched yet.
func (c *BundleCache) CurrentGlobalTxID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bundleTxID
}
