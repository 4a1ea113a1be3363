package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	agentpkg "github.com/rdkcentral/webconfig-agent/internal/agent"
	"github.com/rdkcentral/webconfig-agent/internal/agent/avs"
	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
	"github.com/rdkcentral/webconfig-agent/internal/agent/ptl"
	"github.com/rdkcentral/webconfig-agent/internal/agent/timer"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []domain.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) last() domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeNotifier) at(i int) domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[i]
}

type fakeRetry struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRetry) Retry(ctx context.Context, name string) domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return domain.StatusSuccess
}

func (f *fakeRetry) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTxSource struct {
	id string
}

func (f *fakeTxSource) CurrentGlobalTxID() string { return f.id }

var _ agentpkg.GlobalTxIDSource = (*fakeTxSource)(nil)

type noopRoot struct{}

func (noopRoot) NeedsRootUpdate(string) bool                         { return false }
func (noopRoot) CommitRootVersion(context.Context, string, uint32) error { return nil }

var _ agentpkg.NotificationSink = (*fakeNotifier)(nil)
var _ agentpkg.RootUpdatePolicy = noopRoot{}

type harness struct {
	store    *avs.Store
	pending  *ptl.List
	timers   *timer.Table
	queue    *Queue
	notifier *fakeNotifier
	retry    *fakeRetry
	disp     *Dispatcher
	ctx      context.Context
	cancel   context.CancelFunc
}

func newHarness() *harness {
	store := avs.New(0, nil)
	pending := ptl.New()
	timers := timer.New(nil, nil)
	queue := NewQueue(16, nil, nil)
	notifier := &fakeNotifier{}
	retryEngine := &fakeRetry{}

	disp := New(queue, store, pending, timers, retryEngine, notifier, noopRoot{}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{store: store, pending: pending, timers: timers, queue: queue, notifier: notifier, retry: retryEngine, disp: disp, ctx: ctx, cancel: cancel}
	go disp.Run(ctx)
	return h
}

func (h *harness) feed(raw string) {
	h.queue.Enqueue(raw)
}

// waitUntil polls cond until it returns true or the timeout elapses.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

// Scenario 1: happy ACK.
func TestDispatcher_Scenario_HappyACK(t *testing.T) {
	h := newHarness()
	defer h.cancel()

	h.feed("wifi,10,5,ACK,0")

	waitUntil(t, time.Second, func() bool { return h.notifier.count() == 1 })

	n := h.notifier.last()
	require.Equal(t, "wifi", n.Name)
	require.Equal(t, uint32(5), n.Version)
	require.Equal(t, "success", n.Status)
	require.Equal(t, "ack", n.MessageType)

	_, pending := h.pending.Get("wifi")
	require.False(t, pending)

	entry, ok := h.store.Lookup("wifi")
	require.True(t, ok)
	require.Equal(t, uint32(5), entry.Version)
	require.Equal(t, "success", entry.Status)
}

// Scenario 2: timeout then ACK.
func TestDispatcher_Scenario_TimeoutThenACK(t *testing.T) {
	h := newHarness()
	defer h.cancel()

	h.feed("wifi,10,5,,30")
	waitUntil(t, time.Second, func() bool {
		_, ok := h.timers.Get("wifi")
		return ok
	})

	h.feed("wifi,10,5,ACK,0")
	waitUntil(t, time.Second, func() bool {
		_, ok := h.timers.Get("wifi")
		return !ok
	})

	entry, ok := h.store.Lookup("wifi")
	require.True(t, ok)
	require.Equal(t, uint32(5), entry.Version)
	require.Equal(t, "success", entry.Status)
}

// Scenario 4: stale ACK filtered by tx_id mismatch.
func TestDispatcher_Scenario_StaleACKFiltered(t *testing.T) {
	h := newHarness()
	defer h.cancel()

	h.feed("wifi,10,5,,30")
	waitUntil(t, time.Second, func() bool {
		_, ok := h.timers.Get("wifi")
		return ok
	})

	h.feed("wifi,99,5,ACK,0")
	waitUntil(t, time.Second, func() bool { return h.notifier.count() == 2 })

	_, ok := h.timers.Get("wifi")
	require.True(t, ok, "timer must survive a stale-tx ACK")

	_, ok = h.store.Lookup("wifi")
	require.False(t, ok, "AVS must not be mutated by a stale-tx ACK")
}

// Scenario 5: NACK.
func TestDispatcher_Scenario_NACK(t *testing.T) {
	h := newHarness()
	defer h.cancel()

	h.feed("wifi,10,5,,30")
	waitUntil(t, time.Second, func() bool {
		_, ok := h.timers.Get("wifi")
		return ok
	})

	h.feed("wifi,10,5,NACK,0")
	waitUntil(t, time.Second, func() bool { return h.notifier.count() == 2 })

	_, ok := h.timers.Get("wifi")
	require.False(t, ok)

	entry, ok := h.pending.Get("wifi")
	require.True(t, ok)
	require.Equal(t, "failed", entry.Status)
	require.Equal(t, "doc_rejected", entry.ErrorCode)

	n := h.notifier.last()
	require.Equal(t, "failed", n.Status)
}

// Scenario 6: crash with matching version performs no retry.
func TestDispatcher_Scenario_CrashMatchingVersionNoRetry(t *testing.T) {
	h := newHarness()
	defer h.cancel()
	h.store.Upsert("wifi", 5, "success", "0")

	h.feed("wifi,10,5,,0")
	waitUntil(t, time.Second, func() bool { return h.notifier.count() == 1 })

	require.Equal(t, 0, h.retry.callCount())
	n := h.notifier.last()
	require.Equal(t, "process_crash", n.ErrorDetails)
}

// Crash with a mismatched version does trigger a retry.
func TestDispatcher_Crash_MismatchedVersionTriggersRetry(t *testing.T) {
	h := newHarness()
	defer h.cancel()
	h.store.Upsert("wifi", 4, "success", "0")

	h.feed("wifi,10,5,,0")
	waitUntil(t, time.Second, func() bool { return h.retry.callCount() == 1 })
}

// Expire always triggers a retry.
func TestDispatcher_Expire_AlwaysTriggersRetry(t *testing.T) {
	h := newHarness()
	defer h.cancel()

	h.feed("wifi,42,5,EXPIRE,0")
	waitUntil(t, time.Second, func() bool { return h.retry.callCount() == 1 })

	n := h.notifier.last()
	require.Equal(t, "pending", n.Status)
	require.Equal(t, "timer_expired", n.ErrorDetails)
}

// Boundary: empty queue / no events produces no dispatcher activity.
func TestDispatcher_EmptyQueueIsNoop(t *testing.T) {
	h := newHarness()
	defer h.cancel()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, h.notifier.count())
	require.Equal(t, 0, h.retry.callCount())
}

// With a GlobalTxIDSource configured, every notification shares its id
// rather than each event minting its own.
func TestDispatcher_GlobalTxID_StableWhenSourceConfigured(t *testing.T) {
	store := avs.New(0, nil)
	pending := ptl.New()
	timers := timer.New(nil, nil)
	queue := NewQueue(16, nil, nil)
	notifier := &fakeNotifier{}
	txSource := &fakeTxSource{id: "bundle-tx-42"}

	disp := New(queue, store, pending, timers, &fakeRetry{}, notifier, noopRoot{}, txSource, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go disp.Run(ctx)

	queue.Enqueue("wifi,10,5,,30")
	waitUntil(t, time.Second, func() bool { return notifier.count() == 1 })
	queue.Enqueue("wifi,10,5,ACK,0")
	waitUntil(t, time.Second, func() bool { return notifier.count() == 2 })

	require.Equal(t, "bundle-tx-42", notifier.at(0).GlobalTxID)
	require.Equal(t, "bundle-tx-42", notifier.at(1).GlobalTxID)
}

// Parse failures (empty name) are dropped without affecting other events.
func TestDispatcher_DropsEmptyNameEvent(t *testing.T) {
	h := newHarness()
	defer h.cancel()

	h.feed(",10,5,ACK,0")
	h.feed("wifi,10,5,ACK,0")

	waitUntil(t, time.Second, func() bool { return h.notifier.count() == 1 })
	require.Equal(t, "wifi", h.notifier.last().Name)
}
