package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
)

type predictionRepository struct {
	BaseRepository
}

// NewPredictionRepository returns a prediction log that also queues a
// prediction.logged outbox event in the same transaction.
func NewPredictionRepository(base BaseRepository) repository.PredictionRepository {
	return &predictionRepository{base}
}

func (r *predictionRepository) Create(ctx context.Context, rec *model.PredictionRecord) (err error) {
	if rec == nil {
		return fmt.Errorf("prediction record cannot be nil")
	}
	start := time.Now()
	defer func() { r.observe("insert_prediction", start, err) }()

	event, err := model.NewOutboxEvent(model.EventPredictionLogged, model.PredictionLoggedEvent{
		PredictionID: rec.ID,
		UserID:       rec.UserID,
		Disease:      rec.Disease,
		Symptoms:     rec.Symptoms,
		OccurredAt:   rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to build outbox event: %w", err)
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO predictions (id, user_id, symptoms, predicted_disease, created_at)
			VALUES (:id, :user_id, :symptoms, :predicted_disease, :created_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
			return fmt.Errorf("failed to insert prediction: %w", err)
		}
		if err := insertOutboxEvent(ctx, tx, event); err != nil {
			return err
		}
		return nil
	})
}

func (r *predictionRepository) ListByUser(ctx context.Context, userID string, page model.Pagination) ([]*model.PredictionRecord, error) {
	page = page.Normalize()
	start := time.Now()

	query := `
		SELECT id, user_id, symptoms, predicted_disease, created_at
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	records := []*model.PredictionRecord{}
	err := r.db.SelectContext(ctx, &records, query, userID, page.Limit, page.Offset)
	r.observe("list_predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return records, nil
}
