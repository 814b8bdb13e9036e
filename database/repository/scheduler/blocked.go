package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rallyrent/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateBlockedInterval inserts a new blocked interval document.
func (repo *MongoSchedulerRepo) CreateBlockedInterval(ctx context.Context, blocked *models.BlockedInterval) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.blockedColl.InsertOne(ctx, blocked); err != nil {
		return fmt.Errorf("error creating blocked interval: %w", err)
	}
	return nil
}

// ListBlockedIntervals returns blocks overlapping window, or every block
// when window is zero.
func (repo *MongoSchedulerRepo) ListBlockedIntervals(ctx context.Context, window models.Interval) ([]models.BlockedInterval, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if !window.Start.IsZero() || !window.End.IsZero() {
		filter = bson.M{
			"start": bson.M{"$lt": window.End},
			"end":   bson.M{"$gt": window.Start},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})
	cursor, err := repo.blockedColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching blocked intervals: %w", err)
	}
	defer cursor.Close(ctx)

	var blocked []models.BlockedInterval
	for cursor.Next(ctx) {
		var b models.BlockedInterval
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding blocked interval: %w", err)
		}
		blocked = append(blocked, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return blocked, nil
}

// RemoveBlockedInterval removes a blocked interval record.
func (repo *MongoSchedulerRepo) RemoveBlockedInterval(ctx context.Context, blockedID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.blockedColl.DeleteOne(ctx, bson.M{"id": blockedID})
	if err != nil {
		return false, fmt.Errorf("error removing blocked interval with id %s: %w", blockedID, err)
	}
	return res.DeletedCount == 1, nil
}

// GetBusinessHours returns the record for a day of the week, or nil if the
// day was never configured.
func (repo *MongoSchedulerRepo) GetBusinessHours(ctx context.Context, dayOfWeek int) (*models.BusinessHours, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var hours models.BusinessHours
	if err := repo.hoursColl.FindOne(ctx, bson.M{"dayOfWeek": dayOfWeek}).Decode(&hours); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching business hours for day %d: %w", dayOfWeek, err)
	}
	return &hours, nil
}

// UpsertBusinessHours replaces the record for hours.DayOfWeek.
func (repo *MongoSchedulerRepo) UpsertBusinessHours(ctx context.Context, hours *models.BusinessHours) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := repo.hoursColl.ReplaceOne(ctx, bson.M{"dayOfWeek": hours.DayOfWeek}, hours, opts); err != nil {
		return fmt.Errorf("error saving business hours for day %d: %w", hours.DayOfWeek, err)
	}
	return nil
}
