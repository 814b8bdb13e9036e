package credits

import (
	"context"
	"sync"
	"testing"
	"time"

	"rallyrent/database/repository/memory"
	"rallyrent/models"
	"rallyrent/utils"

	"go.uber.org/zap"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func credit(id string, remaining, total int, created, expires time.Time) *models.SessionCredit {
	return &models.SessionCredit{
		ID: id, CustomerID: "c1", SessionsRemaining: remaining, SessionsTotal: total,
		CreatedAt: created, ExpiresAt: expires, Source: models.CreditSourceManual,
	}
}

func newLedger(t *testing.T, credits ...*models.SessionCredit) (*Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	for _, c := range credits {
		if err := store.Insert(context.Background(), c); err != nil {
			t.Fatal(err)
		}
	}
	return NewLedger(store, func() time.Time { return now }, zap.NewNop()), store
}

func TestSelectFIFO(t *testing.T) {
	day := 24 * time.Hour
	in := []models.SessionCredit{
		*credit("newest", 1, 1, now.Add(-1*day), now.Add(30*day)),
		*credit("expired", 5, 5, now.Add(-9*day), now.Add(-time.Minute)),
		*credit("oldest", 1, 1, now.Add(-5*day), now.Add(300*day)),
		*credit("empty", 0, 3, now.Add(-8*day), now.Add(30*day)),
		*credit("tie-late-expiry", 1, 1, now.Add(-3*day), now.Add(90*day)),
		*credit("tie-early-expiry", 1, 1, now.Add(-3*day), now.Add(60*day)),
	}
	got := SelectFIFO(in, now)
	want := []string{"oldest", "tie-early-expiry", "tie-late-expiry", "newest"}
	if len(got) != len(want) {
		t.Fatalf("got %d credits, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c.ID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, c.ID, want[i])
		}
	}
}

func TestConsumeOneTakesOldestFirst(t *testing.T) {
	year := 365 * 24 * time.Hour
	l, store := newLedger(t,
		credit("young", 3, 3, now.Add(-time.Hour), now.Add(year)),
		credit("old", 1, 2, now.Add(-48*time.Hour), now.Add(year)),
	)
	ctx := context.Background()

	ref, err := l.ConsumeOne(ctx, "c1")
	if err != nil {
		t.Fatalf("ConsumeOne: %v", err)
	}
	if ref.CreditID != "old" {
		t.Fatalf("consumed %s, want old", ref.CreditID)
	}
	if c, _ := store.Credit("old"); c.SessionsRemaining != 0 {
		t.Fatalf("old remaining = %d", c.SessionsRemaining)
	}

	ref, err = l.ConsumeOne(ctx, "c1")
	if err != nil || ref.CreditID != "young" {
		t.Fatalf("second consume = %+v, %v", ref, err)
	}
	if n, _ := l.AvailableSessions(ctx, "c1"); n != 2 {
		t.Fatalf("available = %d, want 2", n)
	}
}

func TestConsumeOneNeverGoesNegative(t *testing.T) {
	l, store := newLedger(t, credit("only", 1, 1, now.Add(-time.Hour), now.Add(time.Hour)))
	ctx := context.Background()

	if _, err := l.ConsumeOne(ctx, "c1"); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	_, err := l.ConsumeOne(ctx, "c1")
	if !utils.HasCode(err, utils.CodeInsufficientCredit) {
		t.Fatalf("err = %v, want insufficient_credit", err)
	}
	if c, _ := store.Credit("only"); c.SessionsRemaining != 0 {
		t.Fatalf("remaining = %d, want 0", c.SessionsRemaining)
	}
}

func TestExpiredCreditsAreIgnored(t *testing.T) {
	l, _ := newLedger(t, credit("stale", 4, 4, now.Add(-400*24*time.Hour), now))
	ctx := context.Background()

	if n, _ := l.AvailableSessions(ctx, "c1"); n != 0 {
		t.Fatalf("available = %d, want 0", n)
	}
	if _, err := l.ConsumeOne(ctx, "c1"); !utils.HasCode(err, utils.CodeInsufficientCredit) {
		t.Fatalf("err = %v", err)
	}
}

func TestConcurrentConsumeDrainsExactly(t *testing.T) {
	l, store := newLedger(t, credit("pack", 5, 5, now.Add(-time.Hour), now.Add(time.Hour)))
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ConsumeOne(ctx, "c1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("succeeded = %d, want 5", succeeded)
	}
	if c, _ := store.Credit("pack"); c.SessionsRemaining != 0 {
		t.Fatalf("remaining = %d", c.SessionsRemaining)
	}
}

type racingRepo struct {
	*memory.Store
	lost map[string]bool
}

func (r *racingRepo) Decrement(ctx context.Context, creditID string, at time.Time) (bool, error) {
	if !r.lost[creditID] {
		r.lost[creditID] = true
		return false, nil
	}
	return r.Store.Decrement(ctx, creditID, at)
}

func TestConsumeOneMovesOnAfterLostRace(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_ = store.Insert(ctx, credit("first", 1, 1, now.Add(-2*time.Hour), now.Add(time.Hour)))
	_ = store.Insert(ctx, credit("second", 1, 1, now.Add(-time.Hour), now.Add(time.Hour)))

	repo := &racingRepo{Store: store, lost: map[string]bool{"second": true}}
	l := NewLedger(repo, func() time.Time { return now }, zap.NewNop())

	ref, err := l.ConsumeOne(ctx, "c1")
	if err != nil {
		t.Fatalf("ConsumeOne: %v", err)
	}
	if ref.CreditID != "second" {
		t.Fatalf("consumed %s, want second after losing first", ref.CreditID)
	}
}

func TestRefundNeverExceedsTotal(t *testing.T) {
	l, store := newLedger(t, credit("pack", 2, 2, now.Add(-time.Hour), now.Add(time.Hour)))
	ctx := context.Background()

	ref, err := l.ConsumeOne(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.RefundOne(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if err := l.RefundOne(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if c, _ := store.Credit("pack"); c.SessionsRemaining != 2 {
		t.Fatalf("remaining = %d, want 2", c.SessionsRemaining)
	}
}

func TestGrantAndBalance(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	if _, err := l.Grant(ctx, "c1", 0, time.Hour, models.CreditSourceManual, ""); !utils.HasCode(err, utils.CodeInvalidRequest) {
		t.Fatalf("zero sessions: err = %v", err)
	}
	c, err := l.Grant(ctx, "c1", 4, 30*24*time.Hour, models.CreditSourcePurchase, "cs_test_1")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if c.SessionsRemaining != 4 || c.SessionsTotal != 4 || !c.ExpiresAt.Equal(now.Add(30*24*time.Hour)) {
		t.Fatalf("credit = %+v", c)
	}
	credits, total, err := l.Balance(ctx, "c1")
	if err != nil || len(credits) != 1 || total != 4 {
		t.Fatalf("Balance = %d credits, %d total, %v", len(credits), total, err)
	}
}
