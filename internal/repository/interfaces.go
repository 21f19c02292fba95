package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medbot/internal/model"
)

// All repository interfaces in one file
type (
	// PredictionRepository stores the disease prediction log.
	PredictionRepository interface {
		Create(ctx context.Context, rec *model.PredictionRecord) error
		ListByUser(ctx context.Context, userID string, page model.Pagination) ([]*model.PredictionRecord, error)
		Ping(ctx context.Context) error
	}

	// OutboxRepository is used by the outbox processor. Claimed events stay
	// locked until the transaction passed to WithTx's callback ends.
	OutboxRepository interface {
		WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
		GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		MoveToDeadLetter(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
		CountPending(ctx context.Context) (int64, error)
	}

	// HistoryRepository stores chat turns per user.
	HistoryRepository interface {
		Append(ctx context.Context, turn *model.ChatTurn) error
		ListByUser(ctx context.Context, userID string, page model.Pagination) ([]*model.ChatTurn, error)
		DeleteByUser(ctx context.Context, userID string) (int64, error)
		Ping(ctx context.Context) error
	}
)
