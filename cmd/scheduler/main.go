package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/config"
	"github.com/ErlanBelekov/workflow-scheduler/internal/email"
	"github.com/ErlanBelekov/workflow-scheduler/internal/health"
	"github.com/ErlanBelekov/workflow-scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/workflow-scheduler/internal/log"
	"github.com/ErlanBelekov/workflow-scheduler/internal/metrics"
	"github.com/ErlanBelekov/workflow-scheduler/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Dependency{Name: "postgres", Pinger: pool})

	dispatcher := scheduler.NewDispatcher(
		postgres.NewScheduleRepository(pool, logger),
		postgres.NewWorkflowRepository(pool),
		postgres.NewUserRepository(pool),
		scheduler.NewExecutor(cfg.ExecuteBaseURL, cfg.InternalAPISecret, time.Duration(cfg.TriggerTimeoutSec)*time.Second),
		email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger),
		logger,
		scheduler.DispatcherConfig{
			Interval:    time.Duration(cfg.DispatchIntervalSec) * time.Second,
			BatchSize:   cfg.DispatchBatchSize,
			Concurrency: cfg.TriggerConcurrency,
			MaxFailures: cfg.MaxConsecutiveFailures,
		},
	)
	dispatched := make(chan struct{})
	go func() {
		dispatcher.Start(ctx)
		close(dispatched)
	}()

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	<-dispatched

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("scheduler shut down")
}
