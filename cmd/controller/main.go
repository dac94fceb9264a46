// Package main is the entry point for the tmplq server.
// It serves the HTTP API and runs the dispatcher in the same process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tmplq/internal/config"
	"tmplq/internal/controller"
	"tmplq/internal/logger"
	"tmplq/internal/observability"
	"tmplq/internal/service"
	"tmplq/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: tmplq.yaml in current directory)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logr := logger.New(os.Stdout, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "tmplq", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logr.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics(ctx, "tmplq")
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logr.Error("failed to shutdown metrics", "error", err)
		}
	}()

	svc, err := service.New(config.NewRuntime(cfg.Settings), service.Options{
		Logger:     logr,
		RetryAfter: service.RetryHint(cfg.DispatchInterval),
	})
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	dispatcher, err := worker.New(svc, worker.Config{
		Interval: cfg.DispatchInterval,
		Logger:   logr,
	})
	if err != nil {
		log.Fatalf("Failed to create dispatcher: %v", err)
	}
	go dispatcher.Run(ctx)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, svc, controller.Options{
		Metrics:         metricsHandler,
		SubmitRateLimit: cfg.SubmitRateLimit,
		SubmitRateBurst: cfg.SubmitRateBurst,
		Logger:          logr,
	})

	logr.Info("tmplq starting", "addr", addr, "dispatch_interval", cfg.DispatchInterval)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "error", err)
		stop()
	}

	// Graceful Shutdown: in-flight jobs always reach a terminal state.
	logr.Info("shutting down, waiting for in-flight jobs")
	select {
	case <-dispatcher.Done():
		logr.Info("dispatcher drained")
	case <-time.After(10 * time.Second):
		logr.Warn("timed out waiting for in-flight jobs")
	}
}
