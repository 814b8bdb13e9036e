package purchase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"rallyrent/database/repository/memory"
	"rallyrent/models"
	"rallyrent/services/credits"
	"rallyrent/utils"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type recorder struct {
	sent []models.Notification
}

func (r *recorder) Notify(ctx context.Context, n models.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) ScheduleReminder(ctx context.Context, n models.Notification, fireAt time.Time) error {
	return nil
}

func setup(t *testing.T) (*Processor, *memory.Store, *credits.Ledger, *recorder) {
	t.Helper()
	store := memory.New()
	ledger := credits.NewLedger(store, time.Now, zap.NewNop())
	rec := &recorder{}
	p := NewProcessor(store, store, store, ledger, rec, "whsec_test", 365*24*time.Hour, zap.NewNop())
	return p, store, ledger, rec
}

func checkoutEvent(id, paymentStatus string, meta map[string]string) stripe.Event {
	session := map[string]interface{}{
		"id":             "cs_test_" + id,
		"object":         "checkout.session",
		"payment_status": paymentStatus,
		"customer_details": map[string]interface{}{
			"email": "Rider@Example.com",
			"name":  "Rider",
			"phone": "+15550100",
		},
		"metadata": meta,
	}
	raw, _ := json.Marshal(session)
	return stripe.Event{
		ID:   id,
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestPaidCheckoutGrantsCredits(t *testing.T) {
	p, store, ledger, rec := setup(t)
	ctx := context.Background()

	res, err := p.Process(ctx, checkoutEvent("evt_1", "paid", map[string]string{"sessions": "5", "validity_days": "30"}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Handled || res.Duplicate || res.Credit == nil {
		t.Fatalf("result = %+v", res)
	}
	if res.Credit.SessionsTotal != 5 || res.Credit.Source != models.CreditSourcePurchase || res.Credit.PurchaseRef != "cs_test_evt_1" {
		t.Fatalf("credit = %+v", res.Credit)
	}
	if d := res.Credit.ExpiresAt.Sub(res.Credit.CreatedAt); d != 30*24*time.Hour {
		t.Fatalf("validity = %v", d)
	}

	customer, _ := store.GetByEmail(ctx, "rider@example.com")
	if customer == nil || customer.Phone != "+15550100" {
		t.Fatalf("customer = %+v", customer)
	}
	if n, _ := ledger.AvailableSessions(ctx, customer.ID); n != 5 {
		t.Fatalf("balance = %d", n)
	}
	if len(rec.sent) != 1 || rec.sent[0].Type != models.NotifyCreditsGranted || rec.sent[0].SessionsGranted != 5 {
		t.Fatalf("notifications = %+v", rec.sent)
	}
}

func TestReplayedEventGrantsOnce(t *testing.T) {
	p, store, ledger, _ := setup(t)
	ctx := context.Background()
	ev := checkoutEvent("evt_2", "paid", map[string]string{"sessions": "3"})

	if _, err := p.Process(ctx, ev); err != nil {
		t.Fatal(err)
	}
	res, err := p.Process(ctx, ev)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("replay not reported as duplicate")
	}
	customer, _ := store.GetByEmail(ctx, "rider@example.com")
	if n, _ := ledger.AvailableSessions(ctx, customer.ID); n != 3 {
		t.Fatalf("balance after replay = %d, want 3", n)
	}
}

func TestSecondPaidEventForSessionGrantsOnce(t *testing.T) {
	p, store, ledger, _ := setup(t)
	ctx := context.Background()
	completed := checkoutEvent("evt_5", "paid", map[string]string{"sessions": "4"})
	succeeded := completed
	succeeded.ID = "evt_6"
	succeeded.Type = stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded

	if _, err := p.Process(ctx, completed); err != nil {
		t.Fatal(err)
	}
	res, err := p.Process(ctx, succeeded)
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if !res.Duplicate || res.Credit != nil {
		t.Fatalf("result = %+v, want duplicate", res)
	}
	customer, _ := store.GetByEmail(ctx, "rider@example.com")
	if n, _ := ledger.AvailableSessions(ctx, customer.ID); n != 4 {
		t.Fatalf("balance = %d, want 4", n)
	}
}

func TestIgnoredEvents(t *testing.T) {
	p, store, _, _ := setup(t)
	ctx := context.Background()

	unpaid, err := p.Process(ctx, checkoutEvent("evt_3", "unpaid", map[string]string{"sessions": "3"}))
	if err != nil || unpaid.Handled {
		t.Fatalf("unpaid = %+v, %v", unpaid, err)
	}
	other, err := p.Process(ctx, stripe.Event{ID: "evt_4", Type: "invoice.paid"})
	if err != nil || other.Handled {
		t.Fatalf("other = %+v, %v", other, err)
	}
	if c, _ := store.GetByEmail(ctx, "rider@example.com"); c != nil {
		t.Fatal("ignored event created a customer")
	}
}

func TestBadMetadataRollsBack(t *testing.T) {
	p, store, _, _ := setup(t)
	ctx := context.Background()

	for _, meta := range []map[string]string{{}, {"sessions": "zero"}, {"sessions": "-1"}, {"sessions": "2", "validity_days": "x"}} {
		_, err := p.Process(ctx, checkoutEvent("evt_5", "paid", meta))
		if !utils.HasCode(err, utils.CodeInvalidRequest) {
			t.Fatalf("meta %v: err = %v", meta, err)
		}
	}
	// The key was not consumed, so a corrected redelivery still applies.
	if c, _ := store.GetByEmail(ctx, "rider@example.com"); c != nil {
		t.Fatal("invalid checkout created a customer")
	}
	if res, err := p.Process(ctx, checkoutEvent("evt_5", "paid", map[string]string{"sessions": "1"})); err != nil || res.Duplicate {
		t.Fatalf("corrected event = %+v, %v", res, err)
	}
}

func TestStoreFailureIsRetryable(t *testing.T) {
	p, store, _, _ := setup(t)
	ctx := context.Background()
	store.Fail("Insert", errors.New("primary stepped down"))

	_, err := p.Process(ctx, checkoutEvent("evt_6", "paid", map[string]string{"sessions": "2"}))
	if appErr := utils.AsAppError(err); appErr.Kind != utils.KindPersistence {
		t.Fatalf("err = %v, want persistence failure", err)
	}
	store.Heal("Insert")
	res, err := p.Process(ctx, checkoutEvent("evt_6", "paid", map[string]string{"sessions": "2"}))
	if err != nil || res.Duplicate || res.Credit == nil {
		t.Fatalf("retry = %+v, %v", res, err)
	}
}

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestHandleWebhookVerifiesSignature(t *testing.T) {
	p, _, _, _ := setup(t)
	ctx := context.Background()
	payload := []byte(`{"id":"evt_7","object":"event","type":"customer.created","api_version":"2020-08-27","data":{"object":{}}}`)

	if _, err := p.HandleWebhook(ctx, payload, sign(payload, "wrong", time.Now())); !utils.HasCode(err, utils.CodeInvalidSignature) {
		t.Fatalf("bad signature err = %v", err)
	}
	res, err := p.HandleWebhook(ctx, payload, sign(payload, "whsec_test", time.Now()))
	if err != nil {
		t.Fatalf("valid signature: %v", err)
	}
	if res.EventID != "evt_7" || res.Handled {
		t.Fatalf("result = %+v", res)
	}

	unconfigured := NewProcessor(nil, nil, nil, nil, nil, "", time.Hour, zap.NewNop())
	if _, err := unconfigured.HandleWebhook(ctx, payload, ""); !utils.HasCode(err, utils.CodeNotConfigured) {
		t.Fatalf("unconfigured err = %v", err)
	}
}
