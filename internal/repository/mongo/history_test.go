package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medbot/internal/config"
	"github.com/jwalitptl/medbot/internal/model"
)

func TestHistoryRepository(t *testing.T) {
	uri := os.Getenv("MEDBOT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MEDBOT_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	client, err := Connect(ctx, config.MongoConfig{URI: uri, Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	db := client.Database("medbot_test")
	coll := "history_" + uuid.NewString()
	defer db.Collection(coll).Drop(ctx)

	repo, err := NewHistoryRepository(ctx, db, coll)
	require.NoError(t, err)
	require.NoError(t, repo.Ping(ctx))

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, msg := range []string{"hi", "paracetamol", "thanks"} {
		turn := model.NewChatTurn("u1", msg, "reply", model.IntentGeneral)
		turn.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Append(ctx, turn))
	}
	require.NoError(t, repo.Append(ctx, model.NewChatTurn("u2", "bye", "reply", model.IntentFarewell)))

	turns, err := repo.ListByUser(ctx, "u1", model.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "thanks", turns[0].Message)
	assert.Equal(t, "paracetamol", turns[1].Message)

	deleted, err := repo.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	turns, err = repo.ListByUser(ctx, "u1", model.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, turns)
}
