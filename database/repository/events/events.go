package eventsRepo

import (
	"context"
	"fmt"
	"time"

	"rallyrent/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventRepository records externally delivered events that were applied.
type EventRepository interface {
	// Claim inserts key and reports false if it was already processed.
	Claim(ctx context.Context, key, kind string) (bool, error)
}

// MongoEventRepo keeps idempotency keys in processed_events.
type MongoEventRepo struct {
	coll *mongo.Collection
}

func NewMongoEventRepo(db *mongo.Database) (*MongoEventRepo, error) {
	repo := &MongoEventRepo{coll: db.Collection("processed_events")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create processed event index: %w", err)
	}
	return repo, nil
}

// Claim upserts the key with $setOnInsert. A duplicate-key error would abort
// the surrounding transaction on the server, so an existing key has to be a
// successful write that matched instead.
func (r *MongoEventRepo) Claim(ctx context.Context, key, kind string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter, update := claimUpsert(key, kind, time.Now().UTC())
	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("error recording event %s: %w", key, err)
	}
	return res.UpsertedCount == 1, nil
}

func claimUpsert(key, kind string, at time.Time) (bson.M, bson.M) {
	return bson.M{"key": key}, bson.M{"$setOnInsert": models.ProcessedEvent{Key: key, Kind: kind, ProcessedAt: at}}
}
