package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/medbot/internal/repository"
	"github.com/jwalitptl/medbot/pkg/logger"
)

// OutboxCleanupWorker deletes processed outbox events once they are older
// than the retention window.
type OutboxCleanupWorker struct {
	repo            repository.OutboxRepository
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
	now             func() time.Time
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retentionDays int, cleanupInterval time.Duration, log *logger.Logger) *OutboxCleanupWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &OutboxCleanupWorker{
		repo:            repo,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          log,
		now:             time.Now,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Error cleaning up outbox events")
			}
		}
	}
}

func (w *OutboxCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup outbox events: %w", err)
	}

	w.logger.Info("Cleaned up processed outbox events", "rows", rows, "cutoff", cutoff)
	return rows, nil
}
