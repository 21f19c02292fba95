package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medbot/pkg/metrics"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// NewBaseRepository creates a new base repository. m may be nil.
func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics) BaseRepository {
	return BaseRepository{db: db, metrics: m}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *BaseRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// observe records one database operation started at start.
func (r *BaseRepository) observe(op string, start time.Time, err error) {
	r.metrics.ObserveDatabase(op, err, time.Since(start))
}
