package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammadpnp/job-feed-import/internal/bootstrap"
	"github.com/mohammadpnp/job-feed-import/internal/platform/config"
	"github.com/mohammadpnp/job-feed-import/internal/platform/logger"
)

func main() {
	cfg, err := config.Load(getEnv("ENV_FILE", ".env"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)

	container, err := bootstrap.NewContainer(context.Background(), cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to build dependencies: %v", err)
	}
	defer container.Close()

	server := bootstrap.NewHTTPServer(container)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	worker := container.NewWorker()
	worker.Start(workerCtx)
	container.StartBackground(workerCtx)

	sched := container.NewScheduler()
	if cfg.Scheduler.Enabled {
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
	}

	go func() {
		appLogger.Info("http server listening", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := server.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	if cfg.Scheduler.Enabled {
		sched.Stop()
	}
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}

	// Runs already claimed finish on their own context; wait for them so
	// their final state is saved before the stores close.
	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		appLogger.Warn("workers still busy at shutdown deadline")
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
