package customerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rallyrent/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCustomerRepo implements CustomerRepository using MongoDB.
type MongoCustomerRepo struct {
	coll *mongo.Collection
}

// NewMongoCustomerRepo creates the repository and its indexes.
func NewMongoCustomerRepo(db *mongo.Database) (*MongoCustomerRepo, error) {
	repo := &MongoCustomerRepo{coll: db.Collection("customers")}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoCustomerRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// GetByEmail looks a customer up case-insensitively. It returns nil, nil
// when no customer has the address.
func (r *MongoCustomerRepo) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

// GetByID retrieves a customer by its unique ID.
func (r *MongoCustomerRepo) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoCustomerRepo) findOne(ctx context.Context, filter bson.M) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var customer models.Customer
	if err := r.coll.FindOne(ctx, filter).Decode(&customer); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch customer: %w", err)
	}
	return &customer, nil
}

// FindOrCreate upserts by email. Known name and phone values are refreshed;
// empty ones never overwrite what is stored.
func (r *MongoCustomerRepo) FindOrCreate(ctx context.Context, profile models.CustomerProfile) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	email := models.NormalizeEmail(profile.Email)
	now := time.Now().UTC()

	set := bson.M{"updatedAt": now}
	if profile.Name != "" {
		set["name"] = profile.Name
	}
	if profile.Phone != "" {
		set["phone"] = profile.Phone
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"id":        uuid.New().String(),
			"email":     email,
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var customer models.Customer
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&customer); err != nil {
		return nil, fmt.Errorf("failed to upsert customer %s: %w", email, err)
	}
	return &customer, nil
}
