package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PredictionRecord is the log entry written for every successful disease
// prediction. UserID is empty for anonymous callers.
type PredictionRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Symptoms  string    `db:"symptoms" json:"symptoms"`
	Disease   string    `db:"predicted_disease" json:"predicted_disease"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewPredictionRecord joins the symptom phrases the way they are displayed.
func NewPredictionRecord(userID string, symptoms []string, disease string) *PredictionRecord {
	return &PredictionRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Symptoms:  strings.Join(symptoms, ", "),
		Disease:   disease,
		CreatedAt: time.Now().UTC(),
	}
}

// PredictionLoggedEvent is the outbox payload for a stored prediction.
type PredictionLoggedEvent struct {
	PredictionID uuid.UUID `json:"prediction_id"`
	UserID       string    `json:"user_id,omitempty"`
	Disease      string    `json:"predicted_disease"`
	Symptoms     string    `json:"symptoms"`
	OccurredAt   time.Time `json:"occurred_at"`
}
