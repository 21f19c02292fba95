package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/pkg/messaging"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

type fakeOutbox struct {
	pending    []*model.OutboxEvent
	updated    []model.OutboxEvent
	deadLetter []model.OutboxEvent
	deleted    time.Time
	updateErr  error
}

func (f *fakeOutbox) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeOutbox) GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutbox) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, *event)
	return nil
}

func (f *fakeOutbox) MoveToDeadLetter(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	f.deadLetter = append(f.deadLetter, *event)
	return nil
}

func (f *fakeOutbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	f.deleted = before
	return 3, nil
}

func (f *fakeOutbox) CountPending(ctx context.Context) (int64, error) {
	return int64(len(f.pending)), nil
}

type fakePublisher struct {
	fail     int
	calls    int
	channels []string
	messages []messaging.Message
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("redis unavailable")
	}
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message.(messaging.Message))
	return nil
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		Channel:       "medbot.predictions",
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
		MaxRetries:    3,
	}
}

func newEvent(t *testing.T) *model.OutboxEvent {
	t.Helper()
	e, err := model.NewOutboxEvent(model.EventPredictionLogged, model.PredictionLoggedEvent{Disease: "Malaria"})
	require.NoError(t, err)
	return e
}

func TestProcessBatchPublishes(t *testing.T) {
	repo := &fakeOutbox{pending: []*model.OutboxEvent{newEvent(t), newEvent(t)}}
	pub := &fakePublisher{}
	m := metrics.NewMetrics("medbot", "test", prometheus.NewRegistry())

	p, err := NewOutboxProcessor(repo, pub, testConfig(), nil, m)
	require.NoError(t, err)

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, pub.messages, 2)
	assert.Equal(t, []string{"medbot.predictions", "medbot.predictions"}, pub.channels)
	assert.Equal(t, model.EventPredictionLogged, pub.messages[0].Type)
	assert.Equal(t, repo.pending[0].ID.String(), pub.messages[0].ID)

	raw, err := json.Marshal(pub.messages[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"predicted_disease":"Malaria"`)

	require.Len(t, repo.updated, 2)
	assert.Equal(t, model.OutboxStatusProcessed, repo.updated[0].Status)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxEventsProcessed))
}

func TestProcessBatchSchedulesRetry(t *testing.T) {
	repo := &fakeOutbox{pending: []*model.OutboxEvent{newEvent(t)}}
	pub := &fakePublisher{fail: 100}
	cfg := testConfig()
	cfg.RetryAttempts = 2

	p, err := NewOutboxProcessor(repo, pub, cfg, nil, nil)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	n, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, pub.calls)

	require.Len(t, repo.updated, 1)
	got := repo.updated[0]
	assert.Equal(t, model.OutboxStatusRetry, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "redis unavailable", *got.ErrorMessage)
	require.NotNil(t, got.RetryAt)
	assert.Equal(t, now.Add(time.Millisecond), *got.RetryAt)
}

func TestProcessBatchDeadLetters(t *testing.T) {
	event := newEvent(t)
	event.RetryCount = 2
	repo := &fakeOutbox{pending: []*model.OutboxEvent{event}}

	p, err := NewOutboxProcessor(repo, &fakePublisher{fail: 100}, testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.deadLetter, 1)
	assert.Equal(t, 3, repo.deadLetter[0].RetryCount)
	assert.Empty(t, repo.updated)
}

func TestProcessBatchAbortsOnStatusError(t *testing.T) {
	repo := &fakeOutbox{
		pending:   []*model.OutboxEvent{newEvent(t)},
		updateErr: errors.New("conn reset"),
	}
	p, err := NewOutboxProcessor(repo, &fakePublisher{}, testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = p.ProcessBatch(context.Background())
	assert.ErrorContains(t, err, "conn reset")
}

func TestBackoff(t *testing.T) {
	p := &OutboxProcessor{config: OutboxProcessorConfig{RetryDelay: time.Second}}
	assert.Equal(t, time.Second, p.backoff(1))
	assert.Equal(t, 2*time.Second, p.backoff(2))
	assert.Equal(t, 8*time.Second, p.backoff(4))
	assert.Equal(t, time.Hour, p.backoff(40))
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Channel = ""
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.MaxRetries = 0
	_, err := NewOutboxProcessor(&fakeOutbox{}, &fakePublisher{}, cfg, nil, nil)
	assert.ErrorContains(t, err, "max retries")
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retry(ctx, 5, time.Hour, func() error { calls++; return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
