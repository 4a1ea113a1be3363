// Package engine wires the five apply-lifecycle components (AVS, PTL,
// Timer Table, Event Queue & Dispatcher, Retry Engine) together into a
// single runnable unit, and exposes the producer-facing Notify entrypoint
// components call with their raw event strings.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	agent "github.com/rdkcentral/webconfig-agent/internal/agent"
	"github.com/rdkcentral/webconfig-agent/internal/agent/avs"
	"github.com/rdkcentral/webconfig-agent/internal/agent/dispatch"
	"github.com/rdkcentral/webconfig-agent/internal/agent/idgen"
	"github.com/rdkcentral/webconfig-agent/internal/agent/metrics"
	"github.com/rdkcentral/webconfig-agent/internal/agent/ptl"
	"github.com/rdkcentral/webconfig-agent/internal/agent/retry"
	"github.com/rdkcentral/webconfig-agent/internal/agent/timer"
)

// defaultFetchInterval is how often the engine refreshes its bundle
// cache when Config.FetchInterval is left at its zero value.
const defaultFetchInterval = 5 * time.Minute

// Config bundles the collaborators and tunables needed to build an
// Engine.
type Config struct {
	AVSPath        string
	AVSCacheSize   int
	QueueCapacity  int
	CircuitBreaker retry.CircuitBreakerConfig

	ParamCodec     agent.ParamCodec
	MultipartCodec agent.MultipartCodec
	ComponentRPC   agent.ComponentRPC
	NotificationSink agent.NotificationSink
	RootCommitter  RootCommitter

	// Fetcher retrieves the bundle RefreshBundle parses into BundleCache.
	// A nil Fetcher (or empty FetchURL) disables bundle refresh entirely
	// (e.g. in tests that drive the engine purely through Notify).
	Fetcher      agent.Fetcher
	FetchURL     string
	FetchInterval time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Agent
}

// Engine is the assembled apply-lifecycle core: one AVS, one PTL, one
// Timer Table, one Queue, one Dispatcher, and one Retry Engine, wired
// together and run across three goroutines (producer is external,
// timer loop, dispatcher).
type Engine struct {
	AVS         *avs.Store
	PTL         *ptl.List
	Timers      *timer.Table
	Queue       *dispatch.Queue
	Dispatcher  *dispatch.Dispatcher
	Retry       *retry.Engine
	BundleCache *BundleCache
	RootTracker *RootTracker

	fetcher        agent.Fetcher
	fetchURL       string
	fetchInterval  time.Duration
	multipartCodec agent.MultipartCodec

	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the AVS from cfg.AVSPath (empty path ⇒ start empty) and
// assembles every component.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	var store *avs.Store
	var err error
	if cfg.AVSPath != "" {
		store, err = avs.Load(cfg.AVSPath, cfg.AVSCacheSize, logger)
		if err != nil {
			return nil, err
		}
	} else {
		store = avs.New(cfg.AVSCacheSize, logger)
	}

	pending := ptl.New()
	timers := timer.New(logger, m)
	queue := dispatch.NewQueue(cfg.QueueCapacity, logger, m)
	bundleCache := NewBundleCache()
	rootTracker := NewRootTracker(cfg.RootCommitter, logger)

	cbConfig := cfg.CircuitBreaker
	if cbConfig == (retry.CircuitBreakerConfig{}) {
		cbConfig = retry.DefaultCircuitBreakerConfig()
	}
	retryEngine := retry.New(bundleCache, cfg.ParamCodec, cfg.MultipartCodec, cfg.ComponentRPC, cbConfig, logger, m)

	dispatcher := dispatch.New(queue, store, pending, timers, retryEngine, cfg.NotificationSink, rootTracker, bundleCache, logger, m)

	return &Engine{
		AVS: store, PTL: pending, Timers: timers, Queue: queue,
		Dispatcher: dispatcher, Retry: retryEngine,
		BundleCache: bundleCache, RootTracker: rootTracker,
		fetcher: cfg.Fetcher, fetchURL: cfg.FetchURL, fetchInterval: cfg.FetchInterval,
		multipartCodec: cfg.MultipartCodec,
		logger:         logger,
	}, nil
}

// Notify is the producer entrypoint: components (and tests) call this
// with a raw "name,tx_id,version,status,timeout" event string.
func (e *Engine) Notify(raw string) {
	e.Queue.Enqueue(raw)
}

// Start launches the timer loop and dispatcher goroutines. It returns
// immediately; call Stop (or cancel a parent context) to shut down.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.Timers.Run(runCtx, e.Queue)
	}()
	go func() {
		defer e.wg.Done()
		e.Dispatcher.Run(runCtx)
	}()

	if e.fetcher != nil && e.fetchURL != "" {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.runFetchLoop(runCtx)
		}()
	}
}

// RefreshBundle fetches the current bundle, parses it, and replaces the
// bundle cache the Retry Engine reads and the dispatcher's notifications
// correlate against. It is the natural producer for BundleCache: without
// it the cache (and the root-update bookkeeping keyed off the same
// bundle transaction id) never has anything to read.
func (e *Engine) RefreshBundle(ctx context.Context) error {
	body, boundary, _, err := e.fetcher.Fetch(ctx, e.fetchURL)
	if err != nil {
		e.logger.Error("engine: bundle fetch failed", "error", err)
		return err
	}

	entries, err := e.multipartCodec.Parse(boundary, body)
	if err != nil {
		e.logger.Error("engine: bundle parse failed", "error", err)
		return err
	}

	bundleTxID := idgen.NewGlobalTxID()
	e.BundleCache.Set(bundleTxID, entries)

	// One subdoc per parsed multipart entry: the root tracker commits
	// the bundle-level version once it has counted len(entries) ACKs
	// under this bundle tx id; it does not track which namespaces ACKed.
	e.RootTracker.ExpectBundle(bundleTxID, len(entries))

	return nil
}

// runFetchLoop refreshes the bundle cache once immediately, then on
// every tick of fetchInterval (or defaultFetchInterval if unset) until
// ctx is cancelled.
func (e *Engine) runFetchLoop(ctx context.Context) {
	if err := e.RefreshBundle(ctx); err != nil {
		e.logger.Warn("engine: initial bundle fetch failed", "error", err)
	}

	interval := e.fetchInterval
	if interval <= 0 {
		interval = defaultFetchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.RefreshBundle(ctx); err != nil {
				e.logger.Warn("engine: bundle refresh failed", "error", err)
			}
		}
	}
}

// Stop cancels the running goroutines and waits for them to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// Persist writes the AVS snapshot to path, atomic-on-rename.
func (e *Engine) Persist(path string) error {
	return e.AVS.Persist(path)
}
