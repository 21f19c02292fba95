package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

// PredictionSink stores prediction log records.
type PredictionSink interface {
	Record(ctx context.Context, rec model.PredictionRecord) error
}

var (
	ErrSinkFull   = errors.New("prediction log buffer full")
	ErrSinkClosed = errors.New("prediction log closed")
)

// RepositorySink writes records straight to a repository.
type RepositorySink struct {
	repo repository.PredictionRepository
}

func NewRepositorySink(repo repository.PredictionRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Record(ctx context.Context, rec model.PredictionRecord) error {
	return s.repo.Create(ctx, &rec)
}

type AsyncSinkConfig struct {
	Buffer       int
	WriteTimeout time.Duration
}

// AsyncSink hands records to a background writer so replies never wait on
// the log. Dropped and failed records are logged and counted.
type AsyncSink struct {
	next    PredictionSink
	ch      chan model.PredictionRecord
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsyncSink(next PredictionSink, cfg AsyncSinkConfig, log *logger.Logger, m *metrics.Metrics) *AsyncSink {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &AsyncSink{
		next:    next,
		ch:      make(chan model.PredictionRecord, cfg.Buffer),
		timeout: cfg.WriteTimeout,
		log:     log,
		metrics: m,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record never blocks. The caller's context is not used for the write,
// which outlives the request.
func (s *AsyncSink) Record(_ context.Context, rec model.PredictionRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(rec, "closed")
		return ErrSinkClosed
	}
	select {
	case s.ch <- rec:
		return nil
	default:
		s.drop(rec, "buffer_full")
		return ErrSinkFull
	}
}

func (s *AsyncSink) drop(rec model.PredictionRecord, reason string) {
	s.metrics.ObserveSinkFailure(reason)
	s.log.Warn("dropped prediction log record", "prediction_id", rec.ID.String(), "reason", reason)
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for rec := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.next.Record(ctx, rec)
		cancel()
		if err != nil {
			s.metrics.ObserveSinkFailure("write_failed")
			s.log.Error(err, "failed to write prediction log record", "prediction_id", rec.ID.String())
		}
	}
}

// Close stops accepting records and waits for the buffered ones to be
// written, or for ctx to end.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
