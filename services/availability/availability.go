// Package availability merges the busy sources for a day into a slot list.
package availability

import (
	"context"
	"fmt"
	"time"

	"rallyrent/config"
	"rallyrent/models"
	"rallyrent/services/slots"
	"rallyrent/services/timezone"
	"rallyrent/utils"

	"go.uber.org/zap"
)

// Store is the slice of the scheduler repository availability reads.
type Store interface {
	GetBusinessHours(ctx context.Context, dayOfWeek int) (*models.BusinessHours, error)
	ListBlockedIntervals(ctx context.Context, window models.Interval) ([]models.BlockedInterval, error)
	ScheduledBookingsOverlapping(ctx context.Context, window models.Interval) ([]models.Booking, error)
}

// BusyReader is the read side of the external calendar.
type BusyReader interface {
	BusyPeriods(ctx context.Context, window models.Interval) ([]models.Interval, error)
}

// Service computes availability. It never writes.
type Service struct {
	store    Store
	calendar BusyReader
	tz       *timezone.Converter
	policy   config.Policy
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(store Store, calendar BusyReader, tz *timezone.Converter, policy config.Policy, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, calendar: calendar, tz: tz, policy: policy, now: now, logger: logger}
}

// Availability returns the slot list for a local date.
func (s *Service) Availability(ctx context.Context, date string) (*models.DayAvailability, error) {
	dow, err := s.tz.DayOfWeek(date)
	if err != nil {
		return nil, err
	}
	record, err := s.store.GetBusinessHours(ctx, dow)
	if err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not load business hours", err)
	}

	result := &models.DayAvailability{Date: date, DayOfWeek: dow, Slots: []models.TimeSlot{}}
	start, end, open := slots.EffectiveWindow(record, s.policy)
	if !open {
		return result, nil
	}
	result.BusinessHours = &models.BusinessWindow{Start: start, End: end}

	candidates, err := slots.Generate(start, end, s.policy.DurationHours, s.policy.IncrementMinutes)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd, err := s.tz.DayBounds(date)
	if err != nil {
		return nil, err
	}
	day := models.Interval{Start: dayStart, End: dayEnd}

	busy, err := s.busySources(ctx, day)
	if err != nil {
		return nil, err
	}

	earliest := s.now().Add(s.policy.LeadTime)
	for i := range candidates {
		iv, err := s.slotInterval(date, candidates[i])
		if err != nil {
			return nil, err
		}
		candidates[i].Available = slotFree(iv, earliest, busy)
	}
	result.Slots = candidates
	return result, nil
}

type busySet struct {
	blocks   []models.Interval
	bookings []models.Interval
	external []models.Interval
}

func (s *Service) busySources(ctx context.Context, day models.Interval) (busySet, error) {
	var set busySet

	blocks, err := s.store.ListBlockedIntervals(ctx, day)
	if err != nil {
		return set, utils.Persistence(utils.CodeStoreUnavailable, "could not load blocked intervals", err)
	}
	for _, b := range blocks {
		set.blocks = append(set.blocks, b.Interval())
	}

	bookings, err := s.store.ScheduledBookingsOverlapping(ctx, day)
	if err != nil {
		return set, utils.Persistence(utils.CodeStoreUnavailable, "could not load bookings", err)
	}
	for _, b := range bookings {
		set.bookings = append(set.bookings, b.Interval())
	}

	// The external calendar fails open: an unreachable calendar must not
	// make the day unbookable.
	external, err := s.calendar.BusyPeriods(ctx, day)
	if err != nil {
		s.logger.Warn("External calendar unavailable, ignoring its busy periods",
			zap.Time("dayStart", day.Start), zap.Error(err))
		external = nil
	}
	set.external = external
	return set, nil
}

func (s *Service) slotInterval(date string, slot models.TimeSlot) (models.Interval, error) {
	start, err := s.tz.LocalToInstant(date, slot.Start)
	if err != nil {
		return models.Interval{}, err
	}
	return models.Interval{Start: start, End: start.Add(s.policy.Duration())}, nil
}

// slotFree checks the lead-time rule first, then each busy source.
func slotFree(slot models.Interval, earliest time.Time, busy busySet) bool {
	if slot.Start.Before(earliest) {
		return false
	}
	for _, source := range [][]models.Interval{busy.blocks, busy.bookings, busy.external} {
		for _, b := range source {
			if slot.Overlaps(b) {
				return false
			}
		}
	}
	return true
}

// CheckSlot validates that a requested local start is a bookable slot
// under the operating policy and returns its interval. It does not look at
// other bookings.
func (s *Service) CheckSlot(ctx context.Context, date, startTime string) (models.Interval, error) {
	start, err := s.tz.LocalToInstant(date, startTime)
	if err != nil {
		return models.Interval{}, err
	}
	onGrid, err := slots.OnGrid(startTime, s.policy)
	if err != nil {
		return models.Interval{}, err
	}
	if !onGrid {
		return models.Interval{}, utils.PolicyViolation(utils.CodeOutsideBookingWindow,
			fmt.Sprintf("%s is not a bookable start; sessions start every %d minutes from %s to %02d:00",
				startTime, s.policy.IncrementMinutes, s.policy.WindowStart(), s.policy.LatestStartHour))
	}

	dow, err := s.tz.DayOfWeek(date)
	if err != nil {
		return models.Interval{}, err
	}
	record, err := s.store.GetBusinessHours(ctx, dow)
	if err != nil {
		return models.Interval{}, utils.Persistence(utils.CodeStoreUnavailable, "could not load business hours", err)
	}
	if _, _, open := slots.EffectiveWindow(record, s.policy); !open {
		return models.Interval{}, utils.PolicyViolation(utils.CodeOutsideBookingWindow, "the rental is closed on "+date)
	}
	return models.Interval{Start: start, End: start.Add(s.policy.Duration())}, nil
}

// Conflicting returns scheduled bookings overlapping iv other than exclude.
func (s *Service) Conflicting(ctx context.Context, iv models.Interval, exclude string) ([]models.Booking, error) {
	bookings, err := s.store.ScheduledBookingsOverlapping(ctx, iv)
	if err != nil {
		return nil, utils.Persistence(utils.CodeStoreUnavailable, "could not check for conflicting bookings", err)
	}
	var out []models.Booking
	for _, b := range bookings {
		if b.ID != exclude && iv.Overlaps(b.Interval()) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Policy exposes the operating policy the service was built with.
func (s *Service) Policy() config.Policy {
	return s.policy
}
