// Package mongo stores chat history in MongoDB, one document per turn.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jwalitptl/medbot/internal/config"
	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
)

// Connect dials cfg.URI and pings the primary.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

type historyRepository struct {
	coll *mongo.Collection
}

// NewHistoryRepository ensures the (user_id, created_at) index exists.
func NewHistoryRepository(ctx context.Context, db *mongo.Database, collection string) (repository.HistoryRepository, error) {
	coll := db.Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create history index: %w", err)
	}
	return &historyRepository{coll: coll}, nil
}

func (r *historyRepository) Append(ctx context.Context, turn *model.ChatTurn) error {
	if turn == nil {
		return fmt.Errorf("chat turn cannot be nil")
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, turn); err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}
	return nil
}

// ListByUser returns the most recent turns first.
func (r *historyRepository) ListByUser(ctx context.Context, userID string, page model.Pagination) ([]*model.ChatTurn, error) {
	page = page.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(page.Limit)).
		SetSkip(int64(page.Offset))

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	defer cursor.Close(ctx)

	turns := []*model.ChatTurn{}
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	return turns, nil
}

func (r *historyRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete chat history: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *historyRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}
