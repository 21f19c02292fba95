package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medbot/pkg/circuitbreaker"
	"github.com/jwalitptl/medbot/pkg/messaging"
)

func TestPublishOpensBreakerWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	b := NewBroker(client, nil, nil)
	defer b.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := b.Publish(ctx, "medbot.predictions", messaging.Message{Type: "t"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	err := b.Publish(ctx, "medbot.predictions", messaging.Message{Type: "t"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}

func TestPublishUnmarshalableMessage(t *testing.T) {
	b := NewBroker(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), nil, nil)
	defer b.Close()

	err := b.Publish(context.Background(), "c", func() {})
	assert.ErrorContains(t, err, "failed to marshal message")
}

func TestPublishRoundTrip(t *testing.T) {
	url := os.Getenv("MEDBOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MEDBOT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	b, err := NewRedisBroker(ctx, Config{URL: url, PoolSize: 2}, nil, nil)
	require.NoError(t, err)
	defer b.Close()

	sub := b.client.Subscribe(ctx, "medbot.test")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "medbot.test", messaging.Message{ID: "1", Type: "prediction.logged"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got messaging.Message
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "prediction.logged", got.Type)
}
