// Package memory is an in-process implementation of every repository and of
// the transactor. Service tests run against it; transactions snapshot the
// whole store and restore it when the callback fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	schedulerRepo "rallyrent/database/repository/scheduler"
	"rallyrent/models"

	"github.com/google/uuid"
)

type state struct {
	customers map[string]models.Customer // by id
	credits   map[string]models.SessionCredit
	usages    map[string]models.SessionUsage // by booking id
	bookings  map[string]models.Booking
	claims    map[time.Time]string // cell -> booking id
	blocked   map[string]models.BlockedInterval
	hours     map[int]models.BusinessHours
	events    map[string]models.ProcessedEvent
}

func newState() state {
	return state{
		customers: map[string]models.Customer{},
		credits:   map[string]models.SessionCredit{},
		usages:    map[string]models.SessionUsage{},
		bookings:  map[string]models.Booking{},
		claims:    map[time.Time]string{},
		blocked:   map[string]models.BlockedInterval{},
		hours:     map[int]models.BusinessHours{},
		events:    map[string]models.ProcessedEvent{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.credits {
		c.credits[k] = v
	}
	for k, v := range s.usages {
		c.usages[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.claims {
		c.claims[k] = v
	}
	for k, v := range s.blocked {
		c.blocked[k] = v
	}
	for k, v := range s.hours {
		c.hours[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	return c
}

// Store holds all collections in memory.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	data   state
	faults map[string]error
}

func New() *Store {
	return &Store{data: newState(), faults: map[string]error{}}
}

// Fail makes every later call of the named method return err until Heal.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

func (s *Store) Heal(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, method)
}

// fault must be called with mu held.
func (s *Store) fault(method string) error {
	return s.faults[method]
}

// WithTransaction serializes transactions and rolls the store back when fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Customers

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetByEmail"); err != nil {
		return nil, err
	}
	email = models.NormalizeEmail(email)
	for _, c := range s.data.customers {
		if c.Email == email {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetByID"); err != nil {
		return nil, err
	}
	c, ok := s.data.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) FindOrCreate(ctx context.Context, profile models.CustomerProfile) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("FindOrCreate"); err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(profile.Email)
	now := time.Now().UTC()
	for id, c := range s.data.customers {
		if c.Email == email {
			if profile.Name != "" {
				c.Name = profile.Name
			}
			if profile.Phone != "" {
				c.Phone = profile.Phone
			}
			c.UpdatedAt = now
			s.data.customers[id] = c
			return &c, nil
		}
	}
	c := models.Customer{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      profile.Name,
		Phone:     profile.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.data.customers[c.ID] = c
	return &c, nil
}

// Credits

func (s *Store) Insert(ctx context.Context, credit *models.SessionCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Insert"); err != nil {
		return err
	}
	s.data.credits[credit.ID] = *credit
	return nil
}

func (s *Store) ListUsable(ctx context.Context, customerID string, now time.Time) ([]models.SessionCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListUsable"); err != nil {
		return nil, err
	}
	var out []models.SessionCredit
	for _, c := range s.data.credits {
		if c.CustomerID == customerID && c.Usable(now) {
			out = append(out, c)
		}
	}
	sortCredits(out)
	return out, nil
}

func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]models.SessionCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SessionCredit
	for _, c := range s.data.credits {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	sortCredits(out)
	return out, nil
}

func sortCredits(credits []models.SessionCredit) {
	sort.Slice(credits, func(i, j int) bool {
		return credits[i].CreatedAt.Before(credits[j].CreatedAt)
	})
}

func (s *Store) Decrement(ctx context.Context, creditID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Decrement"); err != nil {
		return false, err
	}
	c, ok := s.data.credits[creditID]
	if !ok || !c.Usable(now) {
		return false, nil
	}
	c.SessionsRemaining--
	s.data.credits[creditID] = c
	return true, nil
}

func (s *Store) Increment(ctx context.Context, creditID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Increment"); err != nil {
		return false, err
	}
	c, ok := s.data.credits[creditID]
	if !ok || c.SessionsRemaining >= c.SessionsTotal {
		return false, nil
	}
	c.SessionsRemaining++
	s.data.credits[creditID] = c
	return true, nil
}

func (s *Store) InsertUsage(ctx context.Context, usage *models.SessionUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertUsage"); err != nil {
		return err
	}
	s.data.usages[usage.BookingID] = *usage
	return nil
}

func (s *Store) GetUsageByBooking(ctx context.Context, bookingID string) (*models.SessionUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.usages[bookingID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) DeleteUsage(ctx context.Context, bookingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.usages[bookingID]; !ok {
		return false, nil
	}
	delete(s.data.usages, bookingID)
	return true, nil
}

// Scheduler

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("CreateBooking"); err != nil {
		return err
	}
	s.data.bookings[booking.ID] = *booking
	return nil
}

func (s *Store) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetBookingByID"); err != nil {
		return nil, err
	}
	b, ok := s.data.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) GetBookingByIntakeRef(ctx context.Context, intakeRef string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.data.bookings {
		if b.IntakeRef == intakeRef {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (s *Store) ListBookingsByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.data.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out, nil
}

func (s *Store) ScheduledBookingsOverlapping(ctx context.Context, window models.Interval) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ScheduledBookingsOverlapping"); err != nil {
		return nil, err
	}
	var out []models.Booking
	for _, b := range s.data.bookings {
		if b.Status == models.BookingScheduled && window.Overlaps(b.Interval()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("UpdateBookingStatus"); err != nil {
		return false, err
	}
	b, ok := s.data.bookings[bookingID]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = at
	if to == models.BookingCancelled {
		b.CancelledAt = &at
	}
	s.data.bookings[bookingID] = b
	return true, nil
}

func (s *Store) UpdateBookingStart(ctx context.Context, bookingID string, startAt time.Time, date, startTime string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("UpdateBookingStart"); err != nil {
		return false, err
	}
	b, ok := s.data.bookings[bookingID]
	if !ok || b.Status != models.BookingScheduled {
		return false, nil
	}
	b.StartAt, b.Date, b.StartTime, b.UpdatedAt = startAt, date, startTime, at
	b.OverlapsWith = nil
	s.data.bookings[bookingID] = b
	return true, nil
}

func (s *Store) SetExternalEventID(ctx context.Context, bookingID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.data.bookings[bookingID]
	b.ExternalEventID = eventID
	s.data.bookings[bookingID] = b
	return nil
}

func (s *Store) ClaimCells(ctx context.Context, bookingID string, cells []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ClaimCells"); err != nil {
		return err
	}
	for _, c := range cells {
		if _, taken := s.data.claims[c.UTC()]; taken {
			return schedulerRepo.ErrSlotTaken
		}
	}
	for _, c := range cells {
		s.data.claims[c.UTC()] = bookingID
	}
	return nil
}

func (s *Store) ReleaseCells(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c, id := range s.data.claims {
		if id == bookingID {
			delete(s.data.claims, c)
		}
	}
	return nil
}

func (s *Store) CreateBlockedInterval(ctx context.Context, blocked *models.BlockedInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.blocked[blocked.ID] = *blocked
	return nil
}

func (s *Store) ListBlockedIntervals(ctx context.Context, window models.Interval) ([]models.BlockedInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListBlockedIntervals"); err != nil {
		return nil, err
	}
	all := window.Start.IsZero() && window.End.IsZero()
	var out []models.BlockedInterval
	for _, b := range s.data.blocked {
		if all || window.Overlaps(b.Interval()) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *Store) RemoveBlockedInterval(ctx context.Context, blockedID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.blocked[blockedID]; !ok {
		return false, nil
	}
	delete(s.data.blocked, blockedID)
	return true, nil
}

func (s *Store) GetBusinessHours(ctx context.Context, dayOfWeek int) (*models.BusinessHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.data.hours[dayOfWeek]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *Store) UpsertBusinessHours(ctx context.Context, hours *models.BusinessHours) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.hours[hours.DayOfWeek] = *hours
	return nil
}

// Events

func (s *Store) Claim(ctx context.Context, key, kind string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Claim"); err != nil {
		return false, err
	}
	if _, ok := s.data.events[key]; ok {
		return false, nil
	}
	s.data.events[key] = models.ProcessedEvent{Key: key, Kind: kind, ProcessedAt: time.Now().UTC()}
	return true, nil
}

// Inspection helpers for tests.

// Credit returns a copy of a stored credit.
func (s *Store) Credit(id string) (models.SessionCredit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.credits[id]
	return c, ok
}

// ClaimCount returns the number of cells currently held.
func (s *Store) ClaimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.claims)
}

// BookingCount returns the number of stored bookings.
func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.bookings)
}
