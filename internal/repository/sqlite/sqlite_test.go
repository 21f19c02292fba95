package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medbot/internal/model"
)

func TestPredictionRepository(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewPredictionRepository(db)
	require.NoError(t, repo.Ping(ctx))

	first := model.NewPredictionRecord("7", []string{"cough"}, "Common Cold")
	first.CreatedAt = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := model.NewPredictionRecord("7", []string{"itching", "skin rash"}, "Fungal infection")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	other := model.NewPredictionRecord("", []string{"headache"}, "Migraine")

	for _, rec := range []*model.PredictionRecord{first, second, other} {
		require.NoError(t, repo.Create(ctx, rec))
	}

	list, err := repo.ListByUser(ctx, "7", model.Pagination{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "itching, skin rash", list[0].Symptoms)
	assert.Equal(t, "Common Cold", list[1].Disease)

	page, err := repo.ListByUser(ctx, "7", model.Pagination{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	anon, err := repo.ListByUser(ctx, "", model.Pagination{})
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "Migraine", anon[0].Disease)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medical_chatbot.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening applies the schema again without error.
	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestCreateNil(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()
	assert.Error(t, NewPredictionRepository(db).Create(context.Background(), nil))
}
