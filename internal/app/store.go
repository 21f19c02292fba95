package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medbot/internal/config"
	"github.com/jwalitptl/medbot/internal/repository"
	"github.com/jwalitptl/medbot/internal/repository/mongo"
	"github.com/jwalitptl/medbot/internal/repository/postgres"
	"github.com/jwalitptl/medbot/internal/repository/sqlite"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

// Stores holds the persistence backends an entry point opened. Outbox is
// set only with Postgres; History only when Mongo is enabled.
type Stores struct {
	Predictions repository.PredictionRepository
	Outbox      repository.OutboxRepository
	History     repository.HistoryRepository
	// Backend names the prediction log store, "postgres" or "sqlite".
	Backend string

	closers []func(context.Context) error
}

// Close releases everything in reverse opening order.
func (s *Stores) Close(ctx context.Context) error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

func closeDB(db *sqlx.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}

// OpenStores opens the prediction log and, when enabled, chat history.
// With usePostgres and database.enabled the log goes to Postgres together
// with its outbox; otherwise it goes to the SQLite file.
func OpenStores(ctx context.Context, cfg *config.Config, usePostgres bool, log *logger.Logger, m *metrics.Metrics) (*Stores, error) {
	s := &Stores{}

	if usePostgres && cfg.Database.Enabled {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeDB(db))
		if err := postgres.Migrate(ctx, db); err != nil {
			s.Close(ctx)
			return nil, err
		}
		base := postgres.NewBaseRepository(db, m)
		s.Predictions = postgres.NewPredictionRepository(base)
		s.Outbox = postgres.NewOutboxRepository(base)
		s.Backend = "postgres"
	} else {
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeDB(db))
		s.Predictions = sqlite.NewPredictionRepository(db)
		s.Backend = "sqlite"
	}
	log.Info("prediction log opened", "backend", s.Backend)

	if cfg.Mongo.Enabled {
		client, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.closers = append(s.closers, client.Disconnect)

		history, err := mongo.NewHistoryRepository(ctx, client.Database(cfg.Mongo.Database), cfg.Mongo.Collection)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("failed to open chat history: %w", err)
		}
		s.History = history
		log.Info("chat history enabled", "database", cfg.Mongo.Database, "collection", cfg.Mongo.Collection)
	}

	return s, nil
}
