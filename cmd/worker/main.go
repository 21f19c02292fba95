package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/medbot/internal/app"
	"github.com/jwalitptl/medbot/internal/config"
	"github.com/jwalitptl/medbot/internal/handler/health"
	"github.com/jwalitptl/medbot/internal/middleware"
	internalworker "github.com/jwalitptl/medbot/internal/worker"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/messaging/redis"
	"github.com/jwalitptl/medbot/pkg/metrics"
	"github.com/jwalitptl/medbot/pkg/worker"
)

func setupHealthCheck(cfg *config.Config, checks []health.Check, reg *prometheus.Registry, log *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery(log))

	health.NewHandler(2*time.Second, checks...).RegisterRoutes(engine)
	if cfg.Monitoring.PrometheusEnabled {
		engine.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.HealthPort),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "health check server failed")
		}
	}()
	return srv
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load config")
	}
	if !cfg.Database.Enabled {
		logger.NewLogger(nil).Fatal(errors.New("database.enabled is false"), "the outbox worker needs Postgres")
	}
	// The worker has no use for chat history.
	cfg.Mongo.Enabled = false

	workerID := fmt.Sprintf("worker-%s", generateWorkerID())
	log := logger.NewLogger(cfg.Log.ToLoggerConfig()).WithFields(map[string]interface{}{"worker_id": workerID})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("medbot", "worker", reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, true, log, m)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer stores.Close(context.Background())

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log, m)
	if err != nil {
		log.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(
		stores.Outbox,
		broker,
		cfg.Outbox.ToWorkerConfig(cfg.Redis.Channel),
		log,
		m,
	)
	if err != nil {
		log.Fatal(err, "failed to create outbox processor")
	}
	cleanup := internalworker.NewOutboxCleanupWorker(stores.Outbox, cfg.Retention.OutboxDays, cfg.Retention.Interval, log)

	srv := setupHealthCheck(cfg, []health.Check{
		{Name: "postgres", Pinger: stores.Predictions},
		{Name: "redis", Pinger: broker},
	}, reg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	log.Info("Worker started", "channel", cfg.Redis.Channel)
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "health check server forced to shutdown")
	}
	log.Info("Worker stopped")
}

func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
