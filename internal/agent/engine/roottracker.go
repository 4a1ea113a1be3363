package engine

import (
	"context"
	"log/slog"
	"sync"
)

// RootCommitter performs the actual bundle-level version commit once
// every constituent subdoc has ACKed. Concrete wiring (persisting the
// root version into AVS or a dedicated record) is supplied by the
// caller; RootTracker only owns the "have we seen every expected ACK
// yet" bookkeeping.
type RootCommitter interface {
	CommitRoot(ctx context.Context, bundleTxID string, version uint32) error
}

// RootTracker implements agent.RootUpdatePolicy: it tracks, per in-flight
// bundle transaction, how many of its constituent subdocs have ACKed,
// and reports the bundle ready once the expected count is reached. This
// models the original's checkRootUpdate/updateRootVersionToDB/
// addNewDocEntry(get_successDocCount()) sequence explicitly rather than
// as an implicit side effect of ACK handling.
type RootTracker struct {
	mu        sync.Mutex
	expected  map[string]int
	acked     map[string]int
	committer RootCommitter
	logger    *slog.Logger
}

// NewRootTracker returns a tracker delegating commits to committer.
func NewRootTracker(committer RootCommitter, logger *slog.Logger) *RootTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RootTracker{
		expected:  make(map[string]int),
		acked:     make(map[string]int),
		committer: committer,
		logger:    logger,
	}
}

// ExpectBundle records how many subdocs a bundle transaction contains,
// called when the bundle is fetched and dispatched.
func (t *RootTracker) ExpectBundle(bundleTxID string, subdocCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expected[bundleTxID] = subdocCount
	t.acked[bundleTxID] = 0
}

// NeedsRootUpdate implements agent.RootUpdatePolicy: true once every
// expected subdoc for bundleTxID has ACKed.
func (t *RootTracker) NeedsRootUpdate(bundleTxID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	expected, known := t.expected[bundleTxID]
	if !known {
		// No bundle registered under this id: a single, bundle-less
		// ACK (e.g. in tests) always qualifies for a root update.
		return true
	}
	t.acked[bundleTxID]++
	return t.acked[bundleTxID] >= expected
}

// CommitRootVersion implements agent.RootUpdatePolicy.
func (t *RootTracker) CommitRootVersion(ctx context.Context, bundleTxID string, version uint32) error {
	t.mu.Lock()
	delete(t.expected, bundleTxID)
	delete(t.acked, bundleTxID)
	t.mu.Unlock()

	if t.committer == nil {
		return nil
	}
	return t.committer.CommitRoot(ctx, bundleTxID, version)
}
