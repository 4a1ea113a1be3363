// Package timer implements the Timer Table: the set of active per-subdoc
// apply-deadline timers, plus the periodic tick loop that turns expired
// timers into synthesized EXPIRE events.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
	"github.com/rdkcentral/webconfig-agent/internal/agent/idgen"
	"github.com/rdkcentral/webconfig-agent/internal/agent/metrics"
)

// TickInterval is both the timer loop's sleep period and the unit
// `timeout` values are expressed in; the spec requires all timeout
// values be multiples of it.
const TickInterval = 5 * time.Second

// Table is the process-wide Timer Table. It is touched by the timer loop
// (Tick, via Run) and by the dispatcher (StartOrUpdate, Stop); both sides
// serialize through the internal mutex, matching the "no locking across
// components, but TT itself is shared between two tasks" resource model.
type Table struct {
	mu      sync.Mutex
	order   []string
	entries map[string]domain.Timer

	logger  *slog.Logger
	metrics *metrics.Agent
}

// New returns an empty Table.
func New(logger *slog.Logger, m *metrics.Agent) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		entries: make(map[string]domain.Timer),
		logger:  logger,
		metrics: m,
	}
}

// StartOrUpdate creates a timer for name, or replaces its tx_id/timeout
// and marks it running if one already exists.
func (t *Table) StartOrUpdate(name string, txID uint16, timeout uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[name]; !exists {
		t.order = append(t.order, name)
	}
	t.entries[name] = domain.Timer{Name: name, TxID: txID, TimeoutRemaining: timeout, Running: true}
	t.reportActiveLocked()
}

// StopOutcome reports which of the three ways Stop can resolve: no timer
// was registered for the name at all, one was registered and its tx_id
// matched (so it was removed), or one was registered but belongs to a
// different, newer attempt (I5). A caller that only needs to know
// whether the call is stale can treat StopRemoved and StopNotFound
// alike; only StopMismatch signals a stale call that must not be honored.
type StopOutcome int

const (
	StopRemoved StopOutcome = iota
	StopNotFound
	StopMismatch
)

// Stop removes the timer for name iff it is running and tx_id matches.
// A mismatched tx_id is reported as StopMismatch and the entry is left
// untouched: it belongs to a newer attempt (I5). An absent timer is
// reported as StopNotFound, distinct from a mismatch, since a caller
// handling a standalone event with no prior timer must not treat it as
// stale.
func (t *Table) Stop(name string, txID uint16) StopOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[name]
	if !ok {
		return StopNotFound
	}
	if !entry.Running || entry.TxID != txID {
		t.logger.Warn("timer: stop ignored, stale tx_id", "name", name, "tx_id", txID)
		return StopMismatch
	}
	t.removeLocked(name)
	t.reportActiveLocked()
	return StopRemoved
}

// Get returns the timer for name, if present.
func (t *Table) Get(name string) (domain.Timer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[name]
	return e, ok
}

// Len reports the number of active timers.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) removeLocked(name string) {
	delete(t.entries, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *Table) reportActiveLocked() {
	if t.metrics != nil {
		t.metrics.TimersActive.Set(float64(len(t.entries)))
	}
}

// Tick runs one sweep of the table in insertion order. A RUNNING entry
// with time left has its remaining time decremented by TickInterval. The
// first RUNNING entry found with timeout_remaining already at zero gets a
// fresh transaction id, keeps a timeout of 0, and is returned as an
// expiry; the sweep stops there, so entries after it are neither checked
// nor decremented on this call. Only one expiry is surfaced per call. An
// expired entry stays at 0 and is reported again on later ticks until it
// is stopped or restarted.
func (t *Table) Tick() (name string, txID uint16, expired bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, n := range t.order {
		entry := t.entries[n]
		if !entry.Running {
			continue
		}
		if entry.TimeoutRemaining == 0 {
			newTxID := idgen.NewTxID()
			entry.TxID = newTxID
			entry.TimeoutRemaining = 0
			t.entries[n] = entry
			if t.metrics != nil {
				t.metrics.TimerExpiries.Inc()
			}
			return n, newTxID, true
		}
		if entry.TimeoutRemaining >= uint32(TickInterval/time.Second) {
			entry.TimeoutRemaining -= uint32(TickInterval / time.Second)
		} else {
			entry.TimeoutRemaining = 0
		}
		t.entries[n] = entry
	}
	return "", 0, false
}

// ExpirySink receives a synthesized EXPIRE event (name, tx_id) once per
// Tick that finds one. The dispatcher's queue implements this so the
// timer loop can enqueue without importing the dispatch package.
type ExpirySink interface {
	EnqueueExpiry(name string, txID uint16)
}

// Run drives the tick loop until ctx is cancelled, forwarding each
// expiry discovered by Tick to sink.
func (t *Table) Run(ctx context.Context, sink ExpirySink) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			name, txID, expired := t.Tick()
			if expired {
				sink.EnqueueExpiry(name, txID)
			}
		}
	}
}
