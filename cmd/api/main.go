package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medbot/internal/app"
	"github.com/jwalitptl/medbot/internal/config"
	chathandler "github.com/jwalitptl/medbot/internal/handler/chat"
	"github.com/jwalitptl/medbot/internal/handler/health"
	promhandler "github.com/jwalitptl/medbot/internal/handler/prometheus"
	"github.com/jwalitptl/medbot/internal/middleware"
	"github.com/jwalitptl/medbot/internal/router"
	"github.com/jwalitptl/medbot/internal/service/chat"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(cfg.Log.ToLoggerConfig())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("medbot", "api", reg)

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg, true, log, m)
	if err != nil {
		log.Fatal(err, "failed to open storage")
	}

	sink := chat.NewAsyncSink(chat.NewRepositorySink(stores.Predictions), cfg.PredictionLog.ToSinkConfig(), log, m)
	pipeline := app.Build(cfg, sink, log, m)

	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal(err, "failed to register validators")
	}

	checks := []health.Check{{Name: stores.Backend, Pinger: stores.Predictions}}
	if stores.History != nil {
		checks = append(checks, health.Check{Name: "mongo", Pinger: stores.History, Optional: true})
	}

	var metricsHandler *promhandler.Handler
	if cfg.Monitoring.PrometheusEnabled {
		metricsHandler = promhandler.New("medbot", reg)
	}

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Security.MaxBodyBytes,
		CORSConfig:     corsConfig(cfg.Security),
		MetricsPath:    cfg.Monitoring.MetricsPath,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
		routerConfig.RateTTL = cfg.RateLimit.TTL
	}

	r := router.NewRouter(
		chathandler.NewHandler(pipeline.Service, stores.Predictions, stores.History, cfg.Security.AllowedOrigins, log),
		health.NewHandler(2*time.Second, checks...),
		metricsHandler,
		log,
		routerConfig,
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	if err := sink.Close(shutdownCtx); err != nil {
		log.Error(err, "prediction log not fully flushed")
	}
	if err := stores.Close(shutdownCtx); err != nil {
		log.Error(err, "failed to close storage")
	}

	log.Info("server exited properly")
}

func corsConfig(sec config.SecurityConfig) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(sec.AllowedOrigins) > 0 {
		c.AllowOrigins = sec.AllowedOrigins
	}
	if len(sec.AllowedMethods) > 0 {
		c.AllowMethods = sec.AllowedMethods
	}
	if len(sec.AllowedHeaders) > 0 {
		c.AllowHeaders = sec.AllowedHeaders
	}
	return c
}
