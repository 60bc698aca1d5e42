package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MitchCasey/ReviewPing/app/models"
	"github.com/MitchCasey/ReviewPing/internal/pkg/dedup"
	"github.com/MitchCasey/ReviewPing/internal/pkg/ledger"
)

const testEndpointSecret = "whsec_test_secret"

type fakeAccounts struct {
	mu             sync.Mutex
	balance        int64
	lifetimeFunded int64
	creditErr      error
}

func (f *fakeAccounts) Create(a *models.Account) error { return nil }
func (f *fakeAccounts) GetByID(id uint) (*models.Account, error) {
	if id != 1 {
		return nil, fmt.Errorf("account %d not found", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.Account{ID: 1, Balance: f.balance, LifetimeFunded: f.lifetimeFunded, IsActive: true}, nil
}
func (f *fakeAccounts) GetByEmail(email string) (*models.Account, error)     { return nil, nil }
func (f *fakeAccounts) GetByAPIKeyHash(hash string) (*models.Account, error) { return nil, nil }
func (f *fakeAccounts) Update(a *models.Account) error                   { return nil }
func (f *fakeAccounts) List(o, l int) ([]models.Account, error)          { return nil, nil }
func (f *fakeAccounts) Count() (int64, error)                            { return 1, nil }
func (f *fakeAccounts) DebitBalance(id uint, cents int64) (bool, error)  { return false, nil }
func (f *fakeAccounts) CreditBalance(id uint, cents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	f.balance += cents
	f.lifetimeFunded += cents
	return nil
}

// signPayload builds a Stripe-Signature header the way Stripe does:
// t=<unix>,v1=<hex HMAC-SHA256 of "<t>.<payload>">.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutEvent(id, eventType, paymentStatus, metadata string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"data": {
			"object": {
				"id": "cs_test_1",
				"payment_status": %q,
				"metadata": %s
			}
		}
	}`, id, eventType, paymentStatus, metadata))
}

func checkoutCompletedEvent(metadata string) []byte {
	return checkoutEvent("evt_test_1", "checkout.session.completed", "paid", metadata)
}

func newTestService(accounts *fakeAccounts) *Service {
	return NewService(accounts, ledger.NewService(accounts), dedup.NewMemory(100), testEndpointSecret)
}

func TestHandleWebhookCreditsAccount(t *testing.T) {
	accounts := &fakeAccounts{balance: 100}
	svc := newTestService(accounts)

	payload := checkoutCompletedEvent(`{"userId": "1", "creditAmount": "2000"}`)
	if err := svc.HandleWebhook(payload, signPayload(payload, testEndpointSecret)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if accounts.balance != 2100 {
		t.Fatalf("expected balance 2100, got %d", accounts.balance)
	}
	if accounts.lifetimeFunded != 2000 {
		t.Fatalf("expected lifetime funded 2000, got %d", accounts.lifetimeFunded)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := newTestService(accounts)

	payload := checkoutCompletedEvent(`{"userId": "1", "creditAmount": "2000"}`)
	err := svc.HandleWebhook(payload, signPayload(payload, "whsec_other"))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if accounts.balance != 0 {
		t.Fatalf("unverified payload must not move money")
	}
}

func TestHandleWebhookDeduplicatesRedelivery(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := newTestService(accounts)

	payload := checkoutCompletedEvent(`{"userId": "1", "creditAmount": "500"}`)
	for i := 0; i < 3; i++ {
		if err := svc.HandleWebhook(payload, signPayload(payload, testEndpointSecret)); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i, err)
		}
	}

	if accounts.balance != 500 {
		t.Fatalf("redeliveries must credit once, balance is %d", accounts.balance)
	}
}

func TestHandleWebhookRetryAfterCreditFailure(t *testing.T) {
	accounts := &fakeAccounts{creditErr: errors.New("db down")}
	svc := newTestService(accounts)

	payload := checkoutCompletedEvent(`{"userId": "1", "creditAmount": "500"}`)
	if err := svc.HandleWebhook(payload, signPayload(payload, testEndpointSecret)); err == nil {
		t.Fatalf("credit failure must be returned so the delivery is retried")
	}

	// The failed event must not be stuck behind the dedup record.
	accounts.creditErr = nil
	if err := svc.HandleWebhook(payload, signPayload(payload, testEndpointSecret)); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if accounts.balance != 500 {
		t.Fatalf("retry should have credited, balance is %d", accounts.balance)
	}
}

func TestHandleWebhookUnpaidSessionIgnored(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := newTestService(accounts)

	// Async payment methods complete the session with payment_status
	// "unpaid"; crediting must wait for the capture event.
	payload := checkoutEvent("evt_unpaid", "checkout.session.completed", "unpaid", `{"userId": "1", "creditAmount": "500"}`)
	if err := svc.HandleWebhook(payload, signPayload(payload, testEndpointSecret)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accounts.balance != 0 {
		t.Fatalf("uncaptured payment must not credit, balance is %d", accounts.balance)
	}
}

func TestHandleWebhookAsyncPaymentSucceededCredits(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := newTestService(accounts)

	unpaid := checkoutEvent("evt_async_1", "checkout.session.completed", "unpaid", `{"userId": "1", "creditAmount": "500"}`)
	if err := svc.HandleWebhook(unpaid, signPayload(unpaid, testEndpointSecret)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The capture arrives as its own event with a fresh event id.
	captured := checkoutEvent("evt_async_2", "checkout.session.async_payment_succeeded", "paid", `{"userId": "1", "creditAmount": "500"}`)
	if err := svc.HandleWebhook(captured, signPayload(captured, testEndpointSecret)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if accounts.balance != 500 {
		t.Fatalf("captured payment must credit once, balance is %d", accounts.balance)
	}
}

func TestHandleWebhookBadMetadataIsAcked(t *testing.T) {
	cases := []struct {
		name     string
		metadata string
	}{
		{"missing userId", `{"creditAmount": "500"}`},
		{"malformed userId", `{"userId": "abc", "creditAmount": "500"}`},
		{"missing creditAmount", `{"userId": "1"}`},
		{"zero creditAmount", `{"userId": "1", "creditAmount": "0"}`},
		{"negative creditAmount", `{"userId": "1", "creditAmount": "-500"}`},
		{"unknown account", `{"userId": "99", "creditAmount": "500"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &fakeAccounts{}
			svc := newTestService(accounts)

			payload := checkoutCompletedEvent(tc.metadata)
			if err := svc.HandleWebhook(payload, signPayload(payload, testEndpointSecret)); err != nil {
				t.Fatalf("unusable metadata is not retryable, expected ack, got %v", err)
			}
			if accounts.balance != 0 {
				t.Fatalf("no credit may be applied, balance is %d", accounts.balance)
			}
		})
	}
}

func TestHandleWebhookIgnoresOtherEventTypes(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := newTestService(accounts)

	payload := []byte(`{
		"id": "evt_test_2",
		"type": "customer.created",
		"data": {"object": {"id": "cus_1"}}
	}`)
	if err := svc.HandleWebhook(payload, signPayload(payload, testEndpointSecret)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accounts.balance != 0 {
		t.Fatalf("unrelated events must not move money")
	}
}
