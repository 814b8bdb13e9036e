package repository

import (
	creditRepo "rallyrent/database/repository/credit"
	customerRepo "rallyrent/database/repository/customer"
	eventsRepo "rallyrent/database/repository/events"
	schedulerRepo "rallyrent/database/repository/scheduler"

	"go.mongodb.org/mongo-driver/mongo"
)

type CustomerRepository = customerRepo.CustomerRepository

type CreditRepository = creditRepo.CreditRepository

type SchedulerRepository = schedulerRepo.SchedulerRepository

type EventRepository = eventsRepo.EventRepository

// ErrSlotTaken is re-exported for services that claim cells.
var ErrSlotTaken = schedulerRepo.ErrSlotTaken

// Repositories bundles every Mongo-backed store the services need.
type Repositories struct {
	Customers CustomerRepository
	Credits   CreditRepository
	Scheduler SchedulerRepository
	Events    EventRepository
}

// NewMongoRepositories builds all repositories on db, creating indexes.
func NewMongoRepositories(db *mongo.Database) (*Repositories, error) {
	customers, err := customerRepo.NewMongoCustomerRepo(db)
	if err != nil {
		return nil, err
	}
	credits, err := creditRepo.NewMongoCreditRepo(db)
	if err != nil {
		return nil, err
	}
	scheduler, err := schedulerRepo.NewMongoSchedulerRepo(db)
	if err != nil {
		return nil, err
	}
	events, err := eventsRepo.NewMongoEventRepo(db)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Customers: customers,
		Credits:   credits,
		Scheduler: scheduler,
		Events:    events,
	}, nil
}
