package availability

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"rallyrent/config"
	"rallyrent/database/repository/memory"
	"rallyrent/models"
	"rallyrent/services/timezone"
	"rallyrent/utils"

	"go.uber.org/zap"
)

type fakeCalendar struct {
	busy []models.Interval
	err  error
}

func (f *fakeCalendar) BusyPeriods(ctx context.Context, window models.Interval) ([]models.Interval, error) {
	return f.busy, f.err
}

func setup(t *testing.T, now time.Time) (*Service, *memory.Store, *fakeCalendar, *timezone.Converter) {
	t.Helper()
	tz, err := timezone.Load("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}
	policy := config.Policy{
		Location:          tz.Location(),
		LeadTime:          8 * time.Hour,
		Notice:            2 * time.Hour,
		DurationHours:     2,
		IncrementMinutes:  30,
		EarliestStartHour: 7,
		LatestStartHour:   18,
	}
	store := memory.New()
	cal := &fakeCalendar{}
	svc := NewService(store, cal, tz, policy, func() time.Time { return now }, zap.NewNop())
	return svc, store, cal, tz
}

// May 31 2026 12:00 PDT.
var noonBefore = time.Date(2026, 5, 31, 19, 0, 0, 0, time.UTC)

func unavailable(day *models.DayAvailability) []string {
	var out []string
	for _, s := range day.Slots {
		if !s.Available {
			out = append(out, s.Start)
		}
	}
	return out
}

func TestEmptyDayTomorrow(t *testing.T) {
	svc, _, _, _ := setup(t, noonBefore)

	day, err := svc.Availability(context.Background(), "2026-06-02")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(day.Slots) != 24 {
		t.Fatalf("got %d slots, want 24", len(day.Slots))
	}
	if day.Slots[0].Start != "07:00" || day.Slots[23].Start != "18:00" {
		t.Fatalf("first/last = %s/%s", day.Slots[0].Start, day.Slots[23].Start)
	}
	if got := unavailable(day); len(got) != 0 {
		t.Fatalf("unavailable = %v, want none", got)
	}
	if day.DayOfWeek != 2 || day.BusinessHours == nil || day.BusinessHours.End != "20:00" {
		t.Fatalf("day = %+v", day)
	}
}

func TestLeadTimeHidesEarlySlots(t *testing.T) {
	// June 1 2026 01:00 PDT: nothing before 09:00 local is bookable.
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := setup(t, now)

	day, err := svc.Availability(context.Background(), "2026-06-01")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	want := []string{"07:00", "07:30", "08:00", "08:30"}
	if got := unavailable(day); !reflect.DeepEqual(got, want) {
		t.Fatalf("unavailable = %v, want %v", got, want)
	}
}

func TestExistingBookingBlocksOverlappingSlots(t *testing.T) {
	svc, store, _, tz := setup(t, noonBefore)
	ctx := context.Background()

	start, _ := tz.LocalToInstant("2026-06-02", "10:00")
	err := store.CreateBooking(ctx, &models.Booking{
		ID: "b1", StartAt: start, Date: "2026-06-02", StartTime: "10:00",
		DurationHours: 2, Status: models.BookingScheduled, Source: models.SourceNative,
	})
	if err != nil {
		t.Fatal(err)
	}

	day, err := svc.Availability(ctx, "2026-06-02")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	want := []string{"08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	if got := unavailable(day); !reflect.DeepEqual(got, want) {
		t.Fatalf("unavailable = %v, want %v", got, want)
	}
}

func TestCancelledBookingsDoNotBlock(t *testing.T) {
	svc, store, _, tz := setup(t, noonBefore)
	ctx := context.Background()

	start, _ := tz.LocalToInstant("2026-06-02", "10:00")
	_ = store.CreateBooking(ctx, &models.Booking{
		ID: "b1", StartAt: start, DurationHours: 2, Status: models.BookingCancelled,
	})

	day, err := svc.Availability(ctx, "2026-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if got := unavailable(day); len(got) != 0 {
		t.Fatalf("unavailable = %v", got)
	}
}

func TestBlocksAndExternalBusyPeriods(t *testing.T) {
	svc, store, cal, tz := setup(t, noonBefore)
	ctx := context.Background()

	blockStart, _ := tz.LocalToInstant("2026-06-02", "07:00")
	blockEnd, _ := tz.LocalToInstant("2026-06-02", "08:00")
	_ = store.CreateBlockedInterval(ctx, &models.BlockedInterval{ID: "blk", Start: blockStart, End: blockEnd})

	busyStart, _ := tz.LocalToInstant("2026-06-02", "19:00")
	cal.busy = []models.Interval{{Start: busyStart, End: busyStart.Add(30 * time.Minute)}}

	day, err := svc.Availability(ctx, "2026-06-02")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"07:00", "07:30", "17:30", "18:00"}
	if got := unavailable(day); !reflect.DeepEqual(got, want) {
		t.Fatalf("unavailable = %v, want %v", got, want)
	}
}

func TestCalendarFailureFailsOpen(t *testing.T) {
	svc, _, cal, _ := setup(t, noonBefore)
	cal.err = errors.New("calendar timeout")

	day, err := svc.Availability(context.Background(), "2026-06-02")
	if err != nil {
		t.Fatalf("Availability should not fail: %v", err)
	}
	if got := unavailable(day); len(got) != 0 {
		t.Fatalf("unavailable = %v", got)
	}
}

func TestClosedDayHasNoSlots(t *testing.T) {
	svc, store, _, _ := setup(t, noonBefore)
	ctx := context.Background()
	_ = store.UpsertBusinessHours(ctx, &models.BusinessHours{DayOfWeek: 2, Start: "07:00", End: "20:00", IsAvailable: false})

	day, err := svc.Availability(ctx, "2026-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if day.BusinessHours != nil || len(day.Slots) != 0 {
		t.Fatalf("closed day = %+v", day)
	}
}

func TestAvailabilityIsIdempotent(t *testing.T) {
	svc, store, _, tz := setup(t, noonBefore)
	ctx := context.Background()
	start, _ := tz.LocalToInstant("2026-06-02", "14:00")
	_ = store.CreateBooking(ctx, &models.Booking{ID: "b1", StartAt: start, DurationHours: 2, Status: models.BookingScheduled})

	first, err := svc.Availability(ctx, "2026-06-02")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Availability(ctx, "2026-06-02")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("availability changed between identical reads")
	}
}

func TestStoreFailureSurfaces(t *testing.T) {
	svc, store, _, _ := setup(t, noonBefore)
	store.Fail("ScheduledBookingsOverlapping", errors.New("connection reset"))

	_, err := svc.Availability(context.Background(), "2026-06-02")
	if !utils.HasCode(err, utils.CodeStoreUnavailable) {
		t.Fatalf("err = %v, want store_unavailable", err)
	}
}

func TestBadDate(t *testing.T) {
	svc, _, _, _ := setup(t, noonBefore)
	_, err := svc.Availability(context.Background(), "2026-02-30")
	if !utils.HasCode(err, utils.CodeInvalidTimeInput) {
		t.Fatalf("err = %v, want invalid_time_input", err)
	}
}

func TestCheckSlot(t *testing.T) {
	svc, _, _, _ := setup(t, noonBefore)
	ctx := context.Background()

	iv, err := svc.CheckSlot(ctx, "2026-06-02", "18:00")
	if err != nil {
		t.Fatalf("18:00: %v", err)
	}
	if iv.End.Sub(iv.Start) != 2*time.Hour {
		t.Fatalf("interval = %+v", iv)
	}
	for _, clock := range []string{"18:30", "06:30", "10:10"} {
		if _, err := svc.CheckSlot(ctx, "2026-06-02", clock); !utils.HasCode(err, utils.CodeOutsideBookingWindow) {
			t.Errorf("%s: err = %v", clock, err)
		}
	}
}
