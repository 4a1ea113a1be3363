package dispatch

import (
	"log/slog"

	"github.com/rdkcentral/webconfig-agent/internal/agent/metrics"
)

// Queue is the FIFO event queue shared between producers (the component
// callback and the timer loop's EXPIRE synthesis) and the dispatcher. A
// buffered channel gives unbounded-in-practice FIFO delivery without
// hand-rolling a linked list + mutex + condition variable, the way
// internal/realtime's event bus guards its broadcast channel — the
// difference here is the queue never drops: Enqueue blocks rather than
// discarding, since I6 requires every event to be preserved in order.
type Queue struct {
	ch      chan string
	logger  *slog.Logger
	metrics *metrics.Agent
}

// NewQueue returns a Queue with the given channel capacity. Capacity
// only bounds how many events can sit buffered before a producer blocks;
// it does not bound total throughput.
func NewQueue(capacity int, logger *slog.Logger, m *metrics.Agent) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{ch: make(chan string, capacity), logger: logger, metrics: m}
}

// Enqueue appends a raw event string to the tail of the queue.
func (q *Queue) Enqueue(raw string) {
	q.ch <- raw
	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(len(q.ch)))
	}
}

// EnqueueExpiry implements timer.ExpirySink, formatting and enqueuing a
// synthesized EXPIRE event for name/txID.
func (q *Queue) EnqueueExpiry(name string, txID uint16) {
	q.Enqueue(FormatExpiry(name, txID))
}

// Events exposes the receive side for the dispatcher's consume loop.
func (q *Queue) Events() <-chan string {
	return q.ch
}

// Len reports the number of buffered, not-yet-consumed events.
func (q *Queue) Len() int {
	return len(q.ch)
}
