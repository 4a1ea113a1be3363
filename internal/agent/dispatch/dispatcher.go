package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	agent "github.com/rdkcentral/webconfig-agent/internal/agent"
	"github.com/rdkcentral/webconfig-agent/internal/agent/avs"
	"github.com/rdkcentral/webconfig-agent/internal/agent/domain"
	"github.com/rdkcentral/webconfig-agent/internal/agent/idgen"
	"github.com/rdkcentral/webconfig-agent/internal/agent/metrics"
	"github.com/rdkcentral/webconfig-agent/internal/agent/ptl"
	"github.com/rdkcentral/webconfig-agent/internal/agent/timer"
)

// RetryEngine is the Retry Engine contract as seen by the dispatcher.
type RetryEngine interface {
	Retry(ctx context.Context, name string) domain.Status
}

// Dispatcher is the Event Queue & Dispatcher's consumer half: it pops
// events off a Queue and runs the apply-lifecycle state machine against
// AVS, PTL, and the Timer Table. It is the sole writer of AVS and PTL, so
// no additional locking is needed at this layer; the Timer Table is also
// written by the timer loop and guards itself with its own mutex.
type Dispatcher struct {
	queue    *Queue
	avs      *avs.Store
	ptl      *ptl.List
	timers   *timer.Table
	retry    RetryEngine
	notify   agent.NotificationSink
	root     agent.RootUpdatePolicy
	txSource agent.GlobalTxIDSource

	logger  *slog.Logger
	metrics *metrics.Agent
}

// New builds a Dispatcher over its collaborators. root may be nil if no
// bundle-level commit hook is configured. txSource may be nil, in which
// case every notification gets a freshly minted correlation id instead
// of one shared with the rest of the bundle's notifications.
func New(
	queue *Queue,
	store *avs.Store,
	pending *ptl.List,
	timers *timer.Table,
	retry RetryEngine,
	notify agent.NotificationSink,
	root agent.RootUpdatePolicy,
	txSource agent.GlobalTxIDSource,
	logger *slog.Logger,
	m *metrics.Agent,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		queue: queue, avs: store, ptl: pending, timers: timers,
		retry: retry, notify: notify, root: root, txSource: txSource,
		logger: logger, metrics: m,
	}
}

// globalTxID returns the stable bundle-level correlation id when one is
// available, falling back to a fresh per-event id otherwise (e.g. a
// standalone ACK with no bundle in flight).
func (d *Dispatcher) globalTxID() string {
	if d.txSource != nil {
		if id := d.txSource.CurrentGlobalTxID(); id != "" {
			return id
		}
	}
	return idgen.NewGlobalTxID()
}

// Run consumes events until ctx is cancelled or the queue is closed.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-d.queue.Events():
			if !ok {
				return
			}
			d.processOne(ctx, raw)
		}
	}
}

// processOne parses and dispatches a single raw event, recovering from
// any panic so a single malformed event or collaborator bug never kills
// the consumer loop — the idiomatic-Go analogue of "allocation failure
// never aborts the loop".
func (d *Dispatcher) processOne(ctx context.Context, raw string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch: recovered from panic processing event", "event", raw, "panic", r)
			if d.metrics != nil {
				d.metrics.EventsDropped.WithLabelValues("panic").Inc()
			}
		}
	}()

	start := time.Now()
	event := ParseEvent(raw)
	if event.Name == "" {
		d.logger.Warn("dispatch: dropping event with empty name", "event", raw)
		if d.metrics != nil {
			d.metrics.EventsDropped.WithLabelValues("parse_error").Inc()
		}
		return
	}

	if d.metrics != nil {
		d.metrics.EventsTotal.WithLabelValues(event.Kind.String()).Inc()
	}

	switch event.Kind {
	case domain.EventACK:
		d.handleACK(ctx, event)
	case domain.EventNACK:
		d.handleNACK(ctx, event)
	case domain.EventExpire:
		d.handleExpire(ctx, event)
	case domain.EventTimeout:
		d.handleTimeout(ctx, event)
	case domain.EventCrash:
		d.handleCrash(ctx, event)
	}

	if d.metrics != nil {
		d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}
}

func (d *Dispatcher) handleACK(ctx context.Context, e domain.Event) {
	globalTxID := d.globalTxID()

	stopOutcome := d.timers.Stop(e.Name, e.TxID)

	d.sendNotification(ctx, domain.Notification{
		Name: e.Name, Version: e.Version, Status: "success",
		GlobalTxID: globalTxID, MessageType: "ack",
	})

	// Q2: gate the AVS/PTL mutation on the tx_id, not on whether a timer
	// was running at all. A bare ACK with no prior TIMEOUT (no timer
	// ever started) must still apply; only an ACK that contradicts a
	// *running* timer's tx_id is the stale-attempt case (scenario #4)
	// the "safer design" calls out.
	if stopOutcome == timer.StopMismatch {
		d.logger.Warn("dispatch: ACK with stale tx_id, not applied", "name", e.Name, "tx_id", e.TxID)
		return
	}

	d.ptl.Update(e.Name, e.Version, "success", "none")
	d.ptl.Delete(e.Name)
	d.avs.Upsert(e.Name, e.Version, "success", "0")

	if d.root != nil && d.root.NeedsRootUpdate(globalTxID) {
		if err := d.root.CommitRootVersion(ctx, globalTxID, e.Version); err != nil {
			d.logger.Error("dispatch: root version commit failed", "error", err)
		}
	}
}

func (d *Dispatcher) handleNACK(ctx context.Context, e domain.Event) {
	globalTxID := d.globalTxID()

	d.timers.Stop(e.Name, e.TxID)

	// Q1: PTL is always updated on NACK, independent of whether the
	// stop above actually removed a timer — the source's "only if stop
	// succeeded" condition was a documented ambiguity, not an intended
	// gate.
	d.ptl.Update(e.Name, e.Version, "failed", "doc_rejected")

	d.sendNotification(ctx, domain.Notification{
		Name: e.Name, Version: e.Version, Status: "failed",
		ErrorDetails: "doc_rejected", GlobalTxID: globalTxID, MessageType: "status",
	})
}

func (d *Dispatcher) handleExpire(ctx context.Context, e domain.Event) {
	globalTxID := d.globalTxID()

	d.sendNotification(ctx, domain.Notification{
		Name: e.Name, Version: e.Version, Status: "pending",
		ErrorDetails: "timer_expired", GlobalTxID: globalTxID,
		Timeout: e.Timeout, MessageType: "status",
	})

	if d.retry == nil {
		return
	}
	if status := d.retry.Retry(ctx, e.Name); status != domain.StatusSuccess {
		d.logger.Warn("dispatch: retry after expiry did not succeed", "name", e.Name)
	}
}

func (d *Dispatcher) handleTimeout(ctx context.Context, e domain.Event) {
	globalTxID := d.globalTxID()

	d.timers.StartOrUpdate(e.Name, e.TxID, e.Timeout)

	d.sendNotification(ctx, domain.Notification{
		Name: e.Name, Version: e.Version, Status: "pending",
		GlobalTxID: globalTxID, Timeout: e.Timeout, MessageType: "status",
	})
}

func (d *Dispatcher) handleCrash(ctx context.Context, e domain.Event) {
	globalTxID := d.globalTxID()

	d.sendNotification(ctx, domain.Notification{
		Name: e.Name, Version: e.Version, Status: "pending",
		ErrorDetails: "process_crash", GlobalTxID: globalTxID, MessageType: "status",
	})

	if d.retry == nil {
		return
	}
	if d.avs.VersionMatches(e.Name, e.Version) {
		return
	}
	if status := d.retry.Retry(ctx, e.Name); status != domain.StatusSuccess {
		d.logger.Warn("dispatch: retry after crash did not succeed", "name", e.Name)
	}
}

func (d *Dispatcher) sendNotification(ctx context.Context, n domain.Notification) {
	if d.metrics != nil {
		d.metrics.NotificationsSent.WithLabelValues(n.MessageType).Inc()
	}
	if d.notify == nil {
		return
	}
	if err := d.notify.Notify(ctx, n); err != nil {
		d.logger.Error("dispatch: upstream notification failed",
			"error", errors.Wrapf(err, "notify %s", n.Name), "name", n.Name)
	}
}
