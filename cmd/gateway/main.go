// Package main is the entry point for the composite gateway. It wires all
// dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/internal/observability"
	"github.com/hirewear/composite-gateway/internal/order"
	"github.com/hirewear/composite-gateway/internal/search"
	"github.com/hirewear/composite-gateway/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "composite-gateway", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	var metrics *observability.Metrics
	var metricsHandler http.Handler
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.InitMetrics(prometheus.DefaultRegisterer)
		metricsHandler = observability.Handler()
	}

	// The pooled HTTP transport is process-wide: one client shared by every
	// request and every concurrent branch, released at shutdown.
	httpClient := invoker.NewHTTPClient(cfg.HTTP)
	policy := invoker.RetryPolicy{
		MaxRetries: cfg.HTTP.MaxRetries,
		Backoff:    cfg.HTTP.BackoffBase,
	}
	var invOpts []invoker.Option
	if metrics != nil {
		invOpts = append(invOpts, invoker.WithRecorder(metrics))
	}
	inv := invoker.New(httpClient, policy, logger, invOpts...)

	aggregator := search.NewAggregator(inv, cfg, logger)
	workflow := order.NewWorkflow(inv, cfg, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:         cfg,
		Logger:         logger,
		Invoker:        inv,
		Aggregator:     aggregator,
		Workflow:       workflow,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	var handler http.Handler = router
	if metrics != nil {
		handler = metrics.MetricsMiddleware(transport.RoutePattern)(handler)
	}
	if cfg.Observability.Tracing.Enabled {
		handler = observability.TracingMiddleware(handler)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Release the shared outbound connection pool.
	httpClient.CloseIdleConnections()

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}
