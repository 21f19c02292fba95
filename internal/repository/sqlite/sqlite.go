// Package sqlite keeps the prediction log in a local database file for
// single-process deployments such as the CLI.
package sqlite

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
)

//go:embed schema.sql
var schemaSQL string

// Open opens path and applies the schema. Use ":memory:" in tests.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite serialises writers anyway; one connection also keeps
	// ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

type predictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) repository.PredictionRepository {
	return &predictionRepository{db: db}
}

func (r *predictionRepository) Create(ctx context.Context, rec *model.PredictionRecord) error {
	if rec == nil {
		return fmt.Errorf("prediction record cannot be nil")
	}
	query := `
		INSERT INTO Prediction (id, user_id, symptoms, predicted_disease, created_at)
		VALUES (:id, :user_id, :symptoms, :predicted_disease, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

func (r *predictionRepository) ListByUser(ctx context.Context, userID string, page model.Pagination) ([]*model.PredictionRecord, error) {
	page = page.Normalize()
	query := `
		SELECT id, user_id, symptoms, predicted_disease, created_at
		FROM Prediction
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	records := []*model.PredictionRecord{}
	if err := r.db.SelectContext(ctx, &records, query, userID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	return records, nil
}

func (r *predictionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
