// Package main is the entry point for the webconfig apply-lifecycle
// agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rdkcentral/webconfig-agent/internal/agent/api"
	"github.com/rdkcentral/webconfig-agent/internal/agent/engine"
	"github.com/rdkcentral/webconfig-agent/internal/agent/metrics"
	"github.com/rdkcentral/webconfig-agent/internal/agent/multipart"
	"github.com/rdkcentral/webconfig-agent/internal/agent/retry"
	"github.com/rdkcentral/webconfig-agent/internal/agent/transport/httpfetch"
	"github.com/rdkcentral/webconfig-agent/internal/config"
	"github.com/rdkcentral/webconfig-agent/pkg/logger"
)

const (
	serviceName    = "webconfig-agent"
	serviceVersion = "1.0.0"
)

func main() {
	var showVersion = flag.Bool("version", false, "Show version information")
	var showHelp = flag.Bool("help", false, "Show help information")
	var configPath = flag.String("config", "", "Path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	if *showHelp {
		fmt.Printf("webconfig-agent - device-side configuration apply-lifecycle agent\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		fmt.Printf("  -version    Show version information\n")
		fmt.Printf("  -help       Show this help message\n")
		fmt.Printf("  -config     Path to config file\n\n")
		os.Exit(0)
	}

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(bootLogger)

	slog.Info("starting webconfig agent", "service", serviceName, "version", serviceVersion)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	m := metrics.New()

	fetcherOpts := []httpfetch.Option{
		httpfetch.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		httpfetch.WithMaxElapsedTime(cfg.Fetch.MaxElapsedTime),
	}
	if cfg.Fetch.AuthToken != "" {
		fetcherOpts = append(fetcherOpts, httpfetch.WithHeader("Authorization", "Bearer "+cfg.Fetch.AuthToken))
	}
	fetcher := httpfetch.New(fetcherOpts...)

	eng, err := engine.New(engine.Config{
		AVSPath:       cfg.AVS.Path,
		AVSCacheSize:  cfg.AVS.CacheSize,
		QueueCapacity: cfg.Queue.Capacity,
		CircuitBreaker: retry.CircuitBreakerConfig{
			FailureThreshold: cfg.Retry.FailureThreshold,
			SuccessThreshold: cfg.Retry.SuccessThreshold,
			Timeout:          cfg.Retry.BreakerTimeout,
		},
		ParamCodec:     multipart.NewParamCodec(),
		MultipartCodec: multipart.NewCodec(),
		Fetcher:        fetcher,
		FetchURL:       cfg.Fetch.URL,
		FetchInterval:  cfg.Fetch.RefreshInterval,
		Logger:         appLogger,
		Metrics:        m,
	})
	if err != nil {
		appLogger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	var httpServer *http.Server
	if cfg.API.Enabled {
		apiServer := api.New(eng.AVS, eng.PTL, eng.Timers)
		httpServer = &http.Server{Addr: cfg.API.Addr, Handler: apiServer.Handler()}
		go func() {
			appLogger.Info("debug/health HTTP server starting", "addr", cfg.API.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLogger.Error("HTTP server failed", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down webconfig agent")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server forced to shutdown", "error", err)
		}
	}

	eng.Stop()

	if err := eng.Persist(cfg.AVS.Path); err != nil {
		appLogger.Error("failed to persist applied-versions store on shutdown", "error", err)
	}

	appLogger.Info("webconfig agent exited")
}
