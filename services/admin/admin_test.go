package admin

import (
	"context"
	"testing"
	"time"

	"rallyrent/database/repository"
	"rallyrent/database/repository/memory"
	"rallyrent/models"
	"rallyrent/services/credits"
	"rallyrent/services/timezone"
	"rallyrent/utils"

	"go.uber.org/zap"
)

func newService(t *testing.T) (*DefaultAdminService, *memory.Store) {
	t.Helper()
	tz, err := timezone.Load("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}
	store := memory.New()
	now := func() time.Time { return time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC) }
	return &DefaultAdminService{
		Repos:           repository.Repositories{Customers: store, Credits: store, Scheduler: store, Events: store},
		Tx:              store,
		Ledger:          credits.NewLedger(store, now, zap.NewNop()),
		TZ:              tz,
		DefaultValidity: 365 * 24 * time.Hour,
		Now:             now,
		Logger:          zap.NewNop(),
	}, store
}

func TestBlockLifecycle(t *testing.T) {
	a, store := newService(t)
	ctx := context.Background()

	res, err := a.AddBlock(ctx, BlockInput{Date: "2026-06-03", StartTime: "09:00", EndTime: "13:00", Reason: "maintenance"}, "ops")
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if !res.Block.Start.Equal(time.Date(2026, 6, 3, 16, 0, 0, 0, time.UTC)) || res.Block.CreatedBy != "ops" {
		t.Fatalf("block = %+v", res.Block)
	}

	listed, err := a.ListBlocks(ctx, "2026-06-03", "")
	if err != nil || len(listed) != 1 {
		t.Fatalf("list = %v, %v", listed, err)
	}
	if other, _ := a.ListBlocks(ctx, "2026-06-04", "2026-06-05"); len(other) != 0 {
		t.Fatalf("block leaked into another day: %v", other)
	}

	if err := a.RemoveBlock(ctx, res.Block.ID); err != nil {
		t.Fatalf("RemoveBlock: %v", err)
	}
	if err := a.RemoveBlock(ctx, res.Block.ID); !utils.HasCode(err, utils.CodeBlockNotFound) {
		t.Fatalf("second remove err = %v", err)
	}
	if all, _ := store.ListBlockedIntervals(ctx, models.Interval{}); len(all) != 0 {
		t.Fatal("block still stored")
	}
}

func TestAddBlockReportsOverlappedBookings(t *testing.T) {
	a, store := newService(t)
	ctx := context.Background()
	_ = store.CreateBooking(ctx, &models.Booking{
		ID: "b1", StartAt: time.Date(2026, 6, 3, 17, 0, 0, 0, time.UTC), DurationHours: 2, Status: models.BookingScheduled,
	})

	res, err := a.AddBlock(ctx, BlockInput{Date: "2026-06-03", StartTime: "11:00", EndTime: "15:00"}, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].ID != "b1" {
		t.Fatalf("conflicts = %+v", res.Conflicts)
	}

	if _, err := a.AddBlock(ctx, BlockInput{Date: "2026-06-03", StartTime: "15:00", EndTime: "15:00"}, "ops"); !utils.HasCode(err, utils.CodeInvalidRequest) {
		t.Fatalf("empty block err = %v", err)
	}
}

func TestSetBusinessHours(t *testing.T) {
	a, store := newService(t)
	ctx := context.Background()

	if _, err := a.SetBusinessHours(ctx, models.BusinessHours{DayOfWeek: 2, Start: "09:00", End: "17:00", IsAvailable: true}); err != nil {
		t.Fatalf("SetBusinessHours: %v", err)
	}
	got, _ := store.GetBusinessHours(ctx, 2)
	if got == nil || got.Start != "09:00" {
		t.Fatalf("stored = %+v", got)
	}
	if _, err := a.SetBusinessHours(ctx, models.BusinessHours{DayOfWeek: 7}); !utils.HasCode(err, utils.CodeInvalidRequest) {
		t.Fatalf("bad day err = %v", err)
	}
	if _, err := a.SetBusinessHours(ctx, models.BusinessHours{DayOfWeek: 1, Start: "17:00", End: "09:00", IsAvailable: true}); err == nil {
		t.Fatal("inverted hours accepted")
	}
	if _, err := a.SetBusinessHours(ctx, models.BusinessHours{DayOfWeek: 0, IsAvailable: false}); err != nil {
		t.Fatalf("closed day: %v", err)
	}
}

func TestGrantCreditsAndSummary(t *testing.T) {
	a, _ := newService(t)
	ctx := context.Background()

	credit, err := a.GrantCredits(ctx, GrantInput{Email: "New@Example.com", Name: "New", Sessions: 4, ValidityDays: 10})
	if err != nil {
		t.Fatalf("GrantCredits: %v", err)
	}
	if credit.Source != models.CreditSourceManual || credit.ExpiresAt.Sub(credit.CreatedAt) != 240*time.Hour {
		t.Fatalf("credit = %+v", credit)
	}

	summary, err := a.CustomerSummary(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("CustomerSummary: %v", err)
	}
	if summary.SessionsRemaining != 4 || len(summary.Credits) != 1 || summary.Customer.Name != "New" {
		t.Fatalf("summary = %+v", summary)
	}

	if _, err := a.GrantCredits(ctx, GrantInput{Email: "new@example.com", Sessions: 0}); !utils.HasCode(err, utils.CodeInvalidRequest) {
		t.Fatalf("zero grant err = %v", err)
	}
	if _, err := a.CustomerSummary(ctx, "ghost@example.com"); !utils.HasCode(err, utils.CodeCustomerNotFound) {
		t.Fatalf("missing customer err = %v", err)
	}
}
