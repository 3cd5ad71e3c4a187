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
	"github.com/ErlanBelekov/workflow-scheduler/internal/health"
	"github.com/ErlanBelekov/workflow-scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/workflow-scheduler/internal/log"
	"github.com/ErlanBelekov/workflow-scheduler/internal/metrics"
	"github.com/ErlanBelekov/workflow-scheduler/internal/ratelimit"
	httptransport "github.com/ErlanBelekov/workflow-scheduler/internal/transport/http"
	"github.com/ErlanBelekov/workflow-scheduler/internal/transport/http/handler"
	"github.com/ErlanBelekov/workflow-scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		stop()
		log.Fatalf("schema: %v", err)
	}

	userRepo := postgres.NewUserRepository(pool)
	workflowRepo := postgres.NewWorkflowRepository(pool)
	scheduleRepo := postgres.NewScheduleRepository(pool, logger)

	scheduleUsecase := usecase.NewScheduleUsecase(scheduleRepo, workflowRepo, logger)
	scheduleHandler := handler.NewScheduleHandler(scheduleUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Dependency{Name: "postgres", Pinger: pool})

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(httptransport.RouterDeps{
			Logger:          logger,
			ScheduleHandler: scheduleHandler,
			Users:           userRepo,
			Limiter:         ratelimit.NewInMemory(cfg.RateLimitPerMinute, 10*time.Minute),
			JWTKey:          []byte(cfg.JWTSecret),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
