package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/medbot/pkg/circuitbreaker"
	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/messaging"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

type RedisBroker struct {
	client  redis.UniversalClient
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

func NewRedisBroker(ctx context.Context, config Config, log *logger.Logger, m *metrics.Metrics) (*RedisBroker, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pooling
	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	opts.PoolSize = config.PoolSize
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewBroker(client, log, m), nil
}

// NewBroker wraps an existing client.
func NewBroker(client redis.UniversalClient, log *logger.Logger, m *metrics.Metrics) *RedisBroker {
	if log == nil {
		log = logger.Nop()
	}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "redis-broker",
		MaxFailures: 5,
		Timeout:     5 * time.Second,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", string(from), "to", string(to))
		},
	})
	return &RedisBroker{
		client:  client,
		cb:      cb,
		logger:  log,
		metrics: m,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	start := time.Now()
	err = b.cb.Execute(func() error {
		return b.client.Publish(ctx, channel, payload).Err()
	})
	b.metrics.ObserveRedis("publish", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

var _ messaging.Broker = (*RedisBroker)(nil)
