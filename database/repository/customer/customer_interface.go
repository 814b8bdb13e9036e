package customerRepo

import (
	"context"

	"rallyrent/models"
)

// CustomerRepository stores customers keyed by lower-cased email.
type CustomerRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	FindOrCreate(ctx context.Context, profile models.CustomerProfile) (*models.Customer, error)
}
