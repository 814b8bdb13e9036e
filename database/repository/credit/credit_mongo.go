package creditRepo

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

// MongoCreditRepo implements CreditRepository using MongoDB.
type MongoCreditRepo struct {
	creditColl *mongo.Collection
	usageColl  *mongo.Collection
}

func NewMongoCreditRepo(db *mongo.Database) (*MongoCreditRepo, error) {
	repo := &MongoCreditRepo{
		creditColl: db.Collection("session_credits"),
		usageColl:  db.Collection("session_usages"),
	}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoCreditRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := r.creditColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create credit indexes: %w", err)
	}
	if _, err := r.usageColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("failed to create usage indexes: %w", err)
	}
	return nil
}

// Insert stores a newly granted credit.
func (r *MongoCreditRepo) Insert(ctx context.Context, credit *models.SessionCredit) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.creditColl.InsertOne(ctx, credit); err != nil {
		return fmt.Errorf("error inserting credit: %w", err)
	}
	return nil
}

// ListUsable returns credits with sessions left that have not expired at now.
func (r *MongoCreditRepo) ListUsable(ctx context.Context, customerID string, now time.Time) ([]models.SessionCredit, error) {
	return r.find(ctx, bson.M{
		"customerId":        customerID,
		"sessionsRemaining": bson.M{"$gt": 0},
		"expiresAt":         bson.M{"$gt": now},
	})
}

// ListByCustomer returns every credit the customer ever received.
func (r *MongoCreditRepo) ListByCustomer(ctx context.Context, customerID string) ([]models.SessionCredit, error) {
	return r.find(ctx, bson.M{"customerId": customerID})
}

func (r *MongoCreditRepo) find(ctx context.Context, filter bson.M) ([]models.SessionCredit, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.creditColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching credits: %w", err)
	}
	defer cursor.Close(ctx)

	var credits []models.SessionCredit
	if err := cursor.All(ctx, &credits); err != nil {
		return nil, fmt.Errorf("error decoding credits: %w", err)
	}
	return credits, nil
}

// Decrement takes one session from a usable credit. It reports false when
// the credit had nothing left or expired in the meantime.
func (r *MongoCreditRepo) Decrement(ctx context.Context, creditID string, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":                creditID,
		"sessionsRemaining": bson.M{"$gt": 0},
		"expiresAt":         bson.M{"$gt": now},
	}
	res, err := r.creditColl.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"sessionsRemaining": -1}})
	if err != nil {
		return false, fmt.Errorf("error consuming credit %s: %w", creditID, err)
	}
	return res.ModifiedCount == 1, nil
}

// Increment returns one session to a credit, never above its total.
func (r *MongoCreditRepo) Increment(ctx context.Context, creditID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":    creditID,
		"$expr": bson.M{"$lt": bson.A{"$sessionsRemaining", "$sessionsTotal"}},
	}
	res, err := r.creditColl.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"sessionsRemaining": 1}})
	if err != nil {
		return false, fmt.Errorf("error refunding credit %s: %w", creditID, err)
	}
	return res.ModifiedCount == 1, nil
}

// InsertUsage links a booking to the credit it consumed.
func (r *MongoCreditRepo) InsertUsage(ctx context.Context, usage *models.SessionUsage) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.usageColl.InsertOne(ctx, usage); err != nil {
		return fmt.Errorf("error inserting session usage for booking %s: %w", usage.BookingID, err)
	}
	return nil
}

// GetUsageByBooking returns nil, nil when the booking never consumed a credit.
func (r *MongoCreditRepo) GetUsageByBooking(ctx context.Context, bookingID string) (*models.SessionUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var usage models.SessionUsage
	if err := r.usageColl.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&usage); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching usage for booking %s: %w", bookingID, err)
	}
	return &usage, nil
}

// DeleteUsage removes the booking's usage and reports whether one existed.
func (r *MongoCreditRepo) DeleteUsage(ctx context.Context, bookingID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.usageColl.DeleteOne(ctx, bson.M{"bookingId": bookingID})
	if err != nil {
		return false, fmt.Errorf("error deleting usage for booking %s: %w", bookingID, err)
	}
	return res.DeletedCount == 1, nil
}
