package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/medbot/internal/app"
	"github.com/jwalitptl/medbot/internal/config"
	"github.com/jwalitptl/medbot/internal/service/chat"
	"github.com/jwalitptl/medbot/internal/transport/telegram"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}
	log := logger.NewLogger(cfg.Log.ToLoggerConfig())
	if cfg.Telegram.Token == "" {
		log.Fatal(errors.New("telegram.token is empty"), "set TELEGRAM_BOT_TOKEN")
	}

	m := metrics.NewMetrics("medbot", "telegram", prometheus.NewRegistry())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, false, log, m)
	if err != nil {
		log.Fatal(err, "failed to open storage")
	}

	sink := chat.NewAsyncSink(chat.NewRepositorySink(stores.Predictions), cfg.PredictionLog.ToSinkConfig(), log, m)
	pipeline := app.Build(cfg, sink, log, m)

	api, err := telegram.NewAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
	if err != nil {
		log.Fatal(err, "failed to connect to Telegram")
	}
	log.Info("authorized on telegram", "bot", api.Self.UserName)

	bot := telegram.New(api, pipeline.Service, stores.History, telegram.Config{PollTimeout: cfg.Telegram.Timeout}, log)
	if err := bot.Run(ctx); err != nil {
		log.Error(err, "telegram bot stopped")
	}

	closeCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := sink.Close(closeCtx); err != nil {
		log.Error(err, "prediction log not fully flushed")
	}
	if err := stores.Close(closeCtx); err != nil {
		log.Error(err, "failed to close storage")
	}
	log.Info("telegram bot exited")
}
