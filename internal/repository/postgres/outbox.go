package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func insertOutboxEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	// lib/pq sends []byte as bytea, which jsonb rejects.
	if _, err := tx.ExecContext(ctx, query, event.ID, event.EventType, string(event.Payload),
		event.Status, event.RetryCount, event.CreatedAt, event.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingEventsWithLock claims due events. The row locks are held until
// tx ends, so concurrent workers skip each other's batches.
func (r *outboxRepository) GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	start := time.Now()
	query := `
		SELECT id, event_type, payload, status, error_message, retry_count, retry_at,
			created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status IN ('pending', 'retry')
		AND (retry_at IS NULL OR retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	var events []*model.OutboxEvent
	err := tx.SelectContext(ctx, &events, query, limit)
	r.observe("get_pending_events", start, err)
	return events, err
}

func (r *outboxRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_count = $3,
			retry_at = $4,
			processed_at = CASE WHEN $1 = 'processed' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $5
	`
	start := time.Now()
	_, err := tx.ExecContext(ctx, query, event.Status, event.ErrorMessage,
		event.RetryCount, event.RetryAt, event.ID)
	r.observe("update_event_status", start, err)
	return err
}

// MoveToDeadLetter copies event into the dead letter table and marks the
// original failed.
func (r *outboxRepository) MoveToDeadLetter(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events_deadletter (
			event_id, event_type, payload, error_message,
			retry_count, last_retry_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, event.ID, event.EventType, string(event.Payload),
		event.ErrorMessage, event.RetryCount, event.RetryAt); err != nil {
		return fmt.Errorf("failed to insert dead letter: %w", err)
	}

	event.Status = model.OutboxStatusFailed
	event.RetryAt = nil
	return r.UpdateStatusTx(ctx, tx, event)
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM outbox_events WHERE status IN ('pending', 'retry')`)
	return n, err
}
