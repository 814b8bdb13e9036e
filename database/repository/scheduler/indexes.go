package schedulerRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the unique constraints the booking engine relies on.
func (repo *MongoSchedulerRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sets := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{repo.bookingColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "intakeRef", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "startAt", Value: 1}}},
			{Keys: bson.D{{Key: "customerId", Value: 1}}},
		}},
		{repo.claimColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "cell", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "bookingId", Value: 1}}},
		}},
		{repo.blockedColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "start", Value: 1}, {Key: "end", Value: 1}}},
		}},
		{repo.hoursColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "dayOfWeek", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}
	for _, s := range sets {
		if _, err := s.coll.Indexes().CreateMany(ctx, s.models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", s.coll.Name(), err)
		}
	}
	return nil
}
