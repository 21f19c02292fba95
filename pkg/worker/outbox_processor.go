package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/messaging"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

type OutboxProcessorConfig struct {
	// Channel every event is published to.
	Channel       string
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int           // publish attempts within one poll
	RetryDelay    time.Duration // base delay, doubled per failed poll
	MaxRetries    int           // failed polls before dead-lettering
}

func (c OutboxProcessorConfig) Validate() error {
	switch {
	case c.Channel == "":
		return errors.New("channel must be set")
	case c.BatchSize <= 0:
		return errors.New("batch size must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("poll interval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("retry attempts must be greater than 0")
	case c.RetryDelay <= 0:
		return errors.New("retry delay must be greater than 0")
	case c.MaxRetries <= 0:
		return errors.New("max retries must be greater than 0")
	}
	return nil
}

type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Publisher
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Publisher,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
			p.updateQueueSize(ctx)
		}
	}
}

// ProcessBatch claims up to BatchSize due events and publishes them. It
// returns how many were published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	if p.metrics != nil {
		timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
		defer timer.ObserveDuration()
	}

	published := 0
	err := p.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		events, err := p.repo.GetPendingEventsWithLock(ctx, tx, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, event := range events {
			ok, err := p.processEvent(ctx, tx, event)
			if err != nil {
				// A failed status write aborts the batch so the locks are
				// released and the events are picked up again.
				return err
			}
			if ok {
				published++
			}
		}
		return nil
	})
	return published, err
}

func (p *OutboxProcessor) processEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) (bool, error) {
	msg := messaging.Message{
		ID:      event.ID.String(),
		Type:    event.EventType,
		Payload: json.RawMessage(event.Payload),
	}
	pubErr := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, p.config.Channel, msg)
	})

	if pubErr == nil {
		event.Status = model.OutboxStatusProcessed
		event.ErrorMessage = nil
		event.RetryAt = nil
		if err := p.repo.UpdateStatusTx(ctx, tx, event); err != nil {
			return false, fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
		}
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
		return true, nil
	}

	if p.metrics != nil {
		p.metrics.OutboxEventsFailed.Inc()
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	}
	errStr := pubErr.Error()
	event.ErrorMessage = &errStr
	event.RetryCount++

	if event.RetryCount >= p.config.MaxRetries {
		p.logger.Error(pubErr, "Moving event to dead letter",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"retry_count", event.RetryCount)
		if err := p.repo.MoveToDeadLetter(ctx, tx, event); err != nil {
			return false, fmt.Errorf("failed to dead-letter event %s: %w", event.ID, err)
		}
		return false, nil
	}

	retryAt := p.now().Add(p.backoff(event.RetryCount))
	event.Status = model.OutboxStatusRetry
	event.RetryAt = &retryAt
	p.logger.Warn("Failed to publish event, will retry",
		"event_id", event.ID.String(),
		"retry_count", event.RetryCount,
		"retry_at", retryAt)
	if err := p.repo.UpdateStatusTx(ctx, tx, event); err != nil {
		return false, fmt.Errorf("failed to schedule retry for event %s: %w", event.ID, err)
	}
	return false, nil
}

// backoff doubles RetryDelay per failed poll, capped at one hour.
func (p *OutboxProcessor) backoff(retryCount int) time.Duration {
	d := p.config.RetryDelay
	for i := 1; i < retryCount && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}

func (p *OutboxProcessor) updateQueueSize(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	n, err := p.repo.CountPending(ctx)
	if err != nil {
		p.logger.Debug("failed to count pending events", "error", err.Error())
		return
	}
	p.metrics.OutboxQueueSize.Set(float64(n))
}

// Helper retry function
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
