package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/MitchCasey/ReviewPing/app/repository"
	"github.com/MitchCasey/ReviewPing/internal/pkg/dedup"
	"github.com/MitchCasey/ReviewPing/internal/pkg/env"
	"github.com/MitchCasey/ReviewPing/internal/pkg/ledger"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrInvalidSignature is returned when the Stripe-Signature header does
	// not verify against the endpoint secret.
	ErrInvalidSignature = errors.New("invalid stripe signature")
	// ErrBadMetadata is returned when a completed checkout session carries
	// missing or malformed top-up metadata. The delivery is still acked;
	// retrying will not fix the metadata.
	ErrBadMetadata = errors.New("invalid checkout session metadata")
)

// Service turns verified Stripe webhook deliveries into balance credits.
type Service struct {
	accounts       repository.AccountRepository
	ledger         *ledger.Service
	deduper        dedup.Deduper
	endpointSecret string
}

// NewService creates the payment webhook processor.
func NewService(accounts repository.AccountRepository, ldg *ledger.Service, deduper dedup.Deduper, endpointSecret string) *Service {
	return &Service{
		accounts:       accounts,
		ledger:         ldg,
		deduper:        deduper,
		endpointSecret: endpointSecret,
	}
}

// NewServiceFromEnv creates the processor with the endpoint secret from
// STRIPE_WEBHOOK_SECRET.
func NewServiceFromEnv(accounts repository.AccountRepository, ldg *ledger.Service, deduper dedup.Deduper) *Service {
	return NewService(accounts, ldg, deduper, env.MustGetEnv("STRIPE_WEBHOOK_SECRET"))
}

// checkoutSession is the slice of a Stripe checkout.session object the
// top-up flow reads. Decoded from the event's raw payload instead of the
// SDK struct so unrelated API-version churn cannot break parsing.
type checkoutSession struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// HandleWebhook verifies and processes one raw Stripe delivery. A nil return
// means the delivery may be acked with 200; ErrInvalidSignature maps to 400.
func (s *Service) HandleWebhook(raw []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(raw, signature, s.endpointSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	// Stripe retries until it sees a 2xx, so redeliveries are routine.
	if !s.deduper.CheckAndRecord("stripe:" + event.ID) {
		log.Debugf("[Payments] Duplicate Stripe event %s, ignoring", event.ID)
		return nil
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.applyTopUp(&event, session)
	default:
		log.Debugf("[Payments] Ignoring Stripe event type %s", event.Type)
		return nil
	}
}

// applyTopUp credits a completed checkout session's amount to the account
// named in the session metadata.
func (s *Service) applyTopUp(event *stripe.Event, session checkoutSession) error {
	// Async payment methods complete the session before the charge is
	// captured; the async_payment_succeeded event follows once it is. Only
	// captured money may credit the balance.
	if session.PaymentStatus != "paid" {
		log.Debugf("[Payments] Checkout session %s not yet paid (%s), ignoring", session.ID, session.PaymentStatus)
		return nil
	}

	accountID, cents, err := parseTopUpMetadata(session.Metadata)
	if err != nil {
		// Log loudly: money arrived that cannot be attributed.
		log.Errorf("[Payments] Checkout session %s (event %s) has unusable metadata: %v", session.ID, event.ID, err)
		return nil
	}

	account, err := s.accounts.GetByID(accountID)
	if err != nil {
		log.Errorf("[Payments] Checkout session %s names unknown account %d: %v", session.ID, accountID, err)
		return nil
	}

	if err := s.ledger.Credit(account.ID, cents); err != nil {
		// Retryable: return the error so Stripe redelivers. The dedup entry
		// has already been recorded, so drop it to let the retry through.
		s.deduper.Forget("stripe:" + event.ID)
		return fmt.Errorf("crediting account %d by %d cents: %w", account.ID, cents, err)
	}

	log.Infof("[Payments] Credited account %d with %d cents (session %s)", account.ID, cents, session.ID)
	return nil
}

func parseTopUpMetadata(metadata map[string]string) (uint, int64, error) {
	rawID, ok := metadata["userId"]
	if !ok || rawID == "" {
		return 0, 0, fmt.Errorf("%w: missing userId", ErrBadMetadata)
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: userId %q: %v", ErrBadMetadata, rawID, err)
	}

	rawAmount, ok := metadata["creditAmount"]
	if !ok || rawAmount == "" {
		return 0, 0, fmt.Errorf("%w: missing creditAmount", ErrBadMetadata)
	}
	cents, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: creditAmount %q: %v", ErrBadMetadata, rawAmount, err)
	}
	if cents <= 0 {
		return 0, 0, fmt.Errorf("%w: creditAmount %d must be positive", ErrBadMetadata, cents)
	}

	return uint(id), cents, nil
}
