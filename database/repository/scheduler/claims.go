package schedulerRepo

import (
	"context"
	"fmt"
	"time"

	"rallyrent/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ClaimCells reserves every cell for bookingID. Inside a transaction a
// duplicate cell aborts the whole unit, so a booking never holds part of its
// interval.
func (repo *MongoSchedulerRepo) ClaimCells(ctx context.Context, bookingID string, cells []time.Time) error {
	if len(cells) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(cells))
	for _, cell := range cells {
		docs = append(docs, models.SlotClaim{Cell: cell, BookingID: bookingID, CreatedAt: now})
	}
	if _, err := repo.claimColl.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("error claiming cells for booking %s: %w", bookingID, err)
	}
	return nil
}

// ReleaseCells frees all cells held by bookingID.
func (repo *MongoSchedulerRepo) ReleaseCells(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.claimColl.DeleteMany(ctx, bson.M{"bookingId": bookingID}); err != nil {
		return fmt.Errorf("error releasing cells for booking %s: %w", bookingID, err)
	}
	return nil
}
