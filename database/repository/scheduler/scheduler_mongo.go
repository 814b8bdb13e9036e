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

// bookingLookback widens range queries on startAt so bookings that began
// before the window but still run into it are found. Sessions never last a day.
const bookingLookback = 24 * time.Hour

// MongoSchedulerRepo implements SchedulerRepository using MongoDB.
type MongoSchedulerRepo struct {
	bookingColl *mongo.Collection
	claimColl   *mongo.Collection
	blockedColl *mongo.Collection
	hoursColl   *mongo.Collection
}

// NewMongoSchedulerRepo constructs a new instance of MongoSchedulerRepo.
func NewMongoSchedulerRepo(db *mongo.Database) (*MongoSchedulerRepo, error) {
	repo := &MongoSchedulerRepo{
		bookingColl: db.Collection("bookings"),
		claimColl:   db.Collection("slot_claims"),
		blockedColl: db.Collection("blocked_intervals"),
		hoursColl:   db.Collection("business_hours"),
	}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

// CreateBooking inserts a new booking document.
func (repo *MongoSchedulerRepo) CreateBooking(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.bookingColl.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// GetBookingByID retrieves a booking by its ID. It returns nil, nil when absent.
func (repo *MongoSchedulerRepo) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	return repo.findOne(ctx, bson.M{"id": bookingID})
}

// GetBookingByIntakeRef finds the booking created from a third-party event.
func (repo *MongoSchedulerRepo) GetBookingByIntakeRef(ctx context.Context, intakeRef string) (*models.Booking, error) {
	return repo.findOne(ctx, bson.M{"intakeRef": intakeRef})
}

func (repo *MongoSchedulerRepo) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := repo.bookingColl.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching booking: %w", err)
	}
	return &booking, nil
}

// ListBookingsByCustomer returns a customer's bookings, newest start first.
func (repo *MongoSchedulerRepo) ListBookingsByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "startAt", Value: -1}})
	cursor, err := repo.bookingColl.Find(ctx, bson.M{"customerId": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for customer %s: %w", customerID, err)
	}
	return decodeBookings(ctx, cursor)
}

// ScheduledBookingsOverlapping returns scheduled bookings whose interval
// overlaps window.
func (repo *MongoSchedulerRepo) ScheduledBookingsOverlapping(ctx context.Context, window models.Interval) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status": models.BookingScheduled,
		"startAt": bson.M{
			"$lt": window.End,
			"$gt": window.Start.Add(-bookingLookback),
		},
	}
	cursor, err := repo.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding overlapping bookings: %w", err)
	}
	candidates, err := decodeBookings(ctx, cursor)
	if err != nil {
		return nil, err
	}

	var overlapping []models.Booking
	for _, b := range candidates {
		if window.Overlaps(b.Interval()) {
			overlapping = append(overlapping, b)
		}
	}
	return overlapping, nil
}

func decodeBookings(ctx context.Context, cursor *mongo.Cursor) ([]models.Booking, error) {
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatus moves a booking from one status to another. It reports
// false when the booking was not in the expected status.
func (repo *MongoSchedulerRepo) UpdateBookingStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": to, "updatedAt": at}
	if to == models.BookingCancelled {
		set["cancelledAt"] = at
	}
	res, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": bookingID, "status": from}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("error updating status of booking %s: %w", bookingID, err)
	}
	return res.ModifiedCount == 1, nil
}

// UpdateBookingStart moves a scheduled booking in place and clears any
// intake overlap flag. It reports false when the booking is gone or no
// longer scheduled.
func (repo *MongoSchedulerRepo) UpdateBookingStart(ctx context.Context, bookingID string, startAt time.Time, date, startTime string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"startAt":   startAt,
			"date":      date,
			"startTime": startTime,
			"updatedAt": at,
		},
		"$unset": bson.M{"overlapsWith": ""},
	}
	filter := bson.M{"id": bookingID, "status": models.BookingScheduled}
	res, err := repo.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error updating booking %s: %w", bookingID, err)
	}
	return res.MatchedCount == 1, nil
}

// SetExternalEventID records the calendar event created for a booking.
func (repo *MongoSchedulerRepo) SetExternalEventID(ctx context.Context, bookingID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": bookingID}, bson.M{"$set": bson.M{"externalEventId": eventID}})
	if err != nil {
		return fmt.Errorf("error setting external event for booking %s: %w", bookingID, err)
	}
	return nil
}
