// Package metrics exposes Prometheus instrumentation for the webconfig agent's
// apply-lifecycle engine: event queue depth, dispatcher outcomes, timer
// expiries, and retry/circuit-breaker behavior.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Agent aggregates every metric the engine records.
//
// A single instance is created per process (see New) and threaded through
// the dispatcher, timer table, and retry engine, mirroring how
// PublishingMetrics is threaded through the teacher's publishing queue.
type Agent struct {
	QueueDepth        prometheus.Gauge
	EventsTotal       *prometheus.CounterVec // label: kind (ack/nack/expire/timeout/crash)
	EventsDropped     *prometheus.CounterVec // label: reason (parse_error, panic)
	DispatchDuration   prometheus.Histogram
	TimersActive      prometheus.Gauge
	TimerExpiries     prometheus.Counter
	RetryAttempts     *prometheus.CounterVec // label: outcome (success/failure/cancelled)
	RetryAttemptDur   prometheus.Histogram
	RetryBackoff      prometheus.Histogram
	CircuitState      *prometheus.GaugeVec // label: target, value = CircuitBreakerState
	NotificationsSent *prometheus.CounterVec // label: message_type
}

// RetryRecorder is the subset of metrics the resilience package's retry
// loop needs, kept as an interface so that package stays decoupled from
// the concrete Prometheus wiring (mirrors how the teacher's
// resilience.RetryPolicy.Metrics field is injected rather than imported
// directly by the retry loop's core logic).
type RetryRecorder interface {
	RecordAttempt(operation, outcome, errorType string, durationSeconds float64)
	RecordBackoff(operation string, delaySeconds float64)
	RecordFinalAttempt(operation, outcome string, attempts int)
}

// RecordAttempt implements RetryRecorder.
func (a *Agent) RecordAttempt(operation, outcome, errorType string, durationSeconds float64) {
	a.RetryAttempts.WithLabelValues(outcome).Inc()
	a.RetryAttemptDur.Observe(durationSeconds)
	_ = operation
	_ = errorType
}

// RecordBackoff implements RetryRecorder.
func (a *Agent) RecordBackoff(operation string, delaySeconds float64) {
	a.RetryBackoff.Observe(delaySeconds)
	_ = operation
}

// RecordFinalAttempt implements RetryRecorder.
func (a *Agent) RecordFinalAttempt(operation, outcome string, attempts int) {
	_ = operation
	_ = outcome
	_ = attempts
}

var (
	once     sync.Once
	instance *Agent
)

// New returns the process-wide Agent metrics singleton, registering its
// collectors with the default Prometheus registry on first call.
func New() *Agent {
	once.Do(func() {
		instance = &Agent{
			QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "webconfig_agent",
				Subsystem: "dispatch",
				Name:      "queue_depth",
				Help:      "Current number of events waiting in the dispatcher queue.",
			}),
			EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "webconfig_agent",
				Subsystem: "dispatch",
				Name:      "events_total",
				Help:      "Total events processed by the dispatcher, by kind.",
			}, []string{"kind"}),
			EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "webconfig_agent",
				Subsystem: "dispatch",
				Name:      "events_dropped_total",
				Help:      "Total events dropped before reaching the state machine, by reason.",
			}, []string{"reason"}),
			DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "webconfig_agent",
				Subsystem: "dispatch",
				Name:      "event_duration_seconds",
				Help:      "Time to process a single event end to end.",
				Buckets:   prometheus.DefBuckets,
			}),
			TimersActive: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "webconfig_agent",
				Subsystem: "timer",
				Name:      "active",
				Help:      "Number of subdocs currently awaiting a timer-gated verdict.",
			}),
			TimerExpiries: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "webconfig_agent",
				Subsystem: "timer",
				Name:      "expiries_total",
				Help:      "Total number of timer expiries synthesized into the event queue.",
			}),
			RetryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "webconfig_agent",
				Subsystem: "retry",
				Name:      "attempts_total",
				Help:      "Total attempts recorded by the resilience retry loop, by outcome.",
			}, []string{"outcome"}),
			RetryAttemptDur: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "webconfig_agent",
				Subsystem: "retry",
				Name:      "attempt_duration_seconds",
				Help:      "Duration of a single retry attempt (fetch or RPC call).",
				Buckets:   prometheus.DefBuckets,
			}),
			RetryBackoff: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "webconfig_agent",
				Subsystem: "retry",
				Name:      "backoff_seconds",
				Help:      "Backoff delay observed before a retry attempt.",
				Buckets:   prometheus.DefBuckets,
			}),
			CircuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "webconfig_agent",
				Subsystem: "retry",
				Name:      "circuit_state",
				Help:      "Circuit breaker state per target component (0=closed, 1=open, 2=half-open).",
			}, []string{"target"}),
			NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "webconfig_agent",
				Subsystem: "notify",
				Name:      "sent_total",
				Help:      "Total upstream notifications sent, by message type.",
			}, []string{"message_type"}),
		}
	})
	return instance
}
