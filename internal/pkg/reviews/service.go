package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MitchCasey/ReviewPing/app/models"
	"github.com/MitchCasey/ReviewPing/app/repository"
	"github.com/MitchCasey/ReviewPing/internal/pkg/clicksend"
	"github.com/MitchCasey/ReviewPing/internal/pkg/dedup"
	"github.com/MitchCasey/ReviewPing/internal/pkg/ledger"
	"github.com/MitchCasey/ReviewPing/internal/pkg/phone"
	"github.com/MitchCasey/ReviewPing/internal/pkg/sms"
	"github.com/MitchCasey/ReviewPing/internal/pkg/xero"
	"github.com/gofiber/fiber/v2/log"
)

// Xero expects the webhook endpoint to answer inside 5 seconds; past this
// threshold we log a warning while still completing the work.
const slowProcessingThreshold = 4 * time.Second

// Outcome of a webhook delivery as a whole, mapped to an HTTP response by
// the controller.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeInvalidSignature
	OutcomeHandshake
	OutcomeDuplicate
)

// Result summarizes one webhook delivery.
type Result struct {
	Outcome          Outcome
	EventsProcessed  int
	ProcessingTimeMs int64
}

// AccountingClient is the slice of the Xero client the processor needs.
type AccountingClient interface {
	EnsureValidToken(ctx context.Context, conn *models.ProviderConnection, store xero.ConnectionStore) (string, error)
	GetInvoice(ctx context.Context, accessToken, tenantID, invoiceID string) (*xero.Invoice, error)
}

// SMSSender is the slice of the gateway client the processor needs.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Service drives a verified paid-invoice event through to an SMS and an
// auditable outcome record.
type Service struct {
	accounts    repository.AccountRepository
	connections repository.ProviderConnectionRepository
	requests    repository.ReviewRequestRepository
	ledger      *ledger.Service
	accounting  AccountingClient
	sender      SMSSender
	deduper     dedup.Deduper
	normalizer  phone.Normalizer
	calculator  sms.Calculator
	webhookKey  string
}

// Config wires the processor's collaborators.
type Config struct {
	Accounts    repository.AccountRepository
	Connections repository.ProviderConnectionRepository
	Requests    repository.ReviewRequestRepository
	Ledger      *ledger.Service
	Accounting  AccountingClient
	Sender      SMSSender
	Deduper     dedup.Deduper
	Normalizer  phone.Normalizer
	Calculator  sms.Calculator
	// WebhookKey signs inbound webhooks. Required; the caller validates
	// presence at startup.
	WebhookKey string
}

// NewService creates the invoice event processor.
func NewService(cfg Config) *Service {
	return &Service{
		accounts:    cfg.Accounts,
		connections: cfg.Connections,
		requests:    cfg.Requests,
		ledger:      cfg.Ledger,
		accounting:  cfg.Accounting,
		sender:      cfg.Sender,
		deduper:     cfg.Deduper,
		normalizer:  cfg.Normalizer,
		calculator:  cfg.Calculator,
		webhookKey:  cfg.WebhookKey,
	}
}

// HandleWebhook runs a raw webhook delivery through verification, dedup and
// per-event processing. It always returns a Result; the error is reserved
// for internal faults the controller should surface as a 500.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte, signature string) (Result, error) {
	started := time.Now()
	finish := func(r Result) Result {
		elapsed := time.Since(started)
		r.ProcessingTimeMs = elapsed.Milliseconds()
		if elapsed > slowProcessingThreshold {
			log.Warnf("[Reviews] Webhook processing took %s, approaching the provider timeout", elapsed)
		}
		return r
	}

	if !xero.VerifyWebhookSignature(raw, signature, s.webhookKey) {
		return finish(Result{Outcome: OutcomeInvalidSignature}), nil
	}

	payload, err := xero.ParseEventPayload(raw)
	if err != nil {
		// Signed but unparseable: acknowledge, nothing to process.
		log.Warnf("[Reviews] Signed webhook payload failed to parse: %v", err)
		return finish(Result{Outcome: OutcomeProcessed}), nil
	}

	// Empty events list is the provider's connectivity check.
	if len(payload.Events) == 0 {
		return finish(Result{Outcome: OutcomeHandshake}), nil
	}

	if !s.deduper.CheckAndRecord(dedup.Fingerprint(raw)) {
		return finish(Result{Outcome: OutcomeDuplicate}), nil
	}

	processed := 0
	for _, ev := range payload.Events {
		if !ev.IsRelevant() {
			continue
		}
		s.processEvent(ctx, ev)
		processed++
	}

	return finish(Result{Outcome: OutcomeProcessed, EventsProcessed: processed}), nil
}

// processEvent runs one invoice event through the state machine. Skips
// (no connection, unpaid invoice, already sent) end silently; every attempt
// from phone resolution onward persists a ReviewRequest.
func (s *Service) processEvent(ctx context.Context, ev xero.Event) {
	conn, err := s.connections.GetActiveByTenantID(ev.TenantID)
	if err != nil {
		log.Debugf("[Reviews] No active connection for tenant %s, skipping", ev.TenantID)
		return
	}

	token, err := s.accounting.EnsureValidToken(ctx, conn, s.connections)
	if err != nil {
		if errors.Is(err, xero.ErrReauthRequired) {
			s.record(&models.ReviewRequest{
				AccountID: conn.AccountID,
				InvoiceID: ev.ResourceID,
				Status:    models.ReviewStatusReauthRequired,
			})
			return
		}
		log.Errorf("[Reviews] Token refresh for tenant %s failed: %v", ev.TenantID, err)
		return
	}

	invoice, err := s.accounting.GetInvoice(ctx, token, ev.TenantID, ev.ResourceID)
	if err != nil {
		log.Errorf("[Reviews] Fetching invoice %s failed: %v", ev.ResourceID, err)
		s.record(&models.ReviewRequest{
			AccountID: conn.AccountID,
			InvoiceID: ev.ResourceID,
			Status:    models.ReviewStatusFailed,
		})
		return
	}

	if !invoice.IsFullyPaid() {
		return
	}

	alreadySent, err := s.requests.HasSent(conn.AccountID, invoice.InvoiceID)
	if err != nil {
		log.Errorf("[Reviews] Duplicate-send check for invoice %s failed: %v", invoice.InvoiceID, err)
		return
	}
	if alreadySent {
		log.Debugf("[Reviews] Invoice %s already has a sent review request, skipping", invoice.InvoiceID)
		return
	}

	account, err := s.accounts.GetByID(conn.AccountID)
	if err != nil {
		log.Errorf("[Reviews] Loading account %d failed: %v", conn.AccountID, err)
		return
	}
	if !account.IsActive || !account.SMSEnabled {
		log.Debugf("[Reviews] Account %d inactive or SMS disabled, skipping invoice %s", account.ID, invoice.InvoiceID)
		return
	}

	rr := &models.ReviewRequest{
		AccountID:     account.ID,
		InvoiceID:     invoice.InvoiceID,
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerName:  invoice.Contact.Name,
		CustomerEmail: invoice.Contact.EmailAddress,
		Status:        models.ReviewStatusPending,
	}

	to := s.resolvePhone(invoice.Contact)
	if to == "" {
		// No guessing, no placeholder numbers: record and stop.
		rr.Status = models.ReviewStatusNoPhone
		s.record(rr)
		return
	}
	rr.CustomerPhone = to

	body := RenderTemplate(templateFor(account), map[string]string{
		"customerName": customerFirstName(invoice.Contact),
		"businessName": account.BusinessName,
		"reviewUrl":    account.ReviewURL,
	})

	analysis := s.calculator.Analyze(body)
	if !analysis.Valid {
		rr.Status = models.ReviewStatusMessageTooLong
		s.record(rr)
		return
	}
	rr.CostCents = analysis.CostCents

	// Paywall: fail closed before the gateway is ever contacted.
	if account.Balance < analysis.CostCents {
		rr.Status = models.ReviewStatusInsufficientBalance
		s.record(rr)
		return
	}

	messageID, err := s.sender.Send(ctx, to, body)
	if err != nil {
		rr.Status = classifyGatewayError(err)
		s.record(rr)
		return
	}

	// Debit the computed cost, not a flat unit price. The gateway call
	// already happened, so a lost race here is logged, not rolled back.
	if err := s.ledger.Debit(account.ID, analysis.CostCents); err != nil {
		log.Errorf("[Reviews] Debiting account %d by %d cents after send failed: %v", account.ID, analysis.CostCents, err)
	}

	now := time.Now()
	rr.Status = models.ReviewStatusSent
	rr.GatewayMessageID = messageID
	rr.SentAt = &now
	s.record(rr)
}

// resolvePhone walks the contact's phone entries in preference order and
// returns the first normalizable number.
func (s *Service) resolvePhone(contact xero.Contact) string {
	ordered := make([]xero.Phone, 0, len(contact.Phones))
	for _, want := range []string{xero.PhoneTypeMobile, xero.PhoneTypeDefault} {
		for _, p := range contact.Phones {
			if p.PhoneType == want {
				ordered = append(ordered, p)
			}
		}
	}
	for _, p := range contact.Phones {
		if p.PhoneType != xero.PhoneTypeMobile && p.PhoneType != xero.PhoneTypeDefault {
			ordered = append(ordered, p)
		}
	}

	for _, p := range ordered {
		if p.PhoneNumber == "" {
			continue
		}
		if p.PhoneAreaCode != "" || p.PhoneCountryCode != "" {
			if e164 := s.normalizer.NormalizeParts(p.PhoneCountryCode, p.PhoneAreaCode, p.PhoneNumber); e164 != "" {
				return e164
			}
			continue
		}
		if e164 := s.normalizer.Normalize(p.PhoneNumber); e164 != "" {
			return e164
		}
	}
	return ""
}

func (s *Service) record(rr *models.ReviewRequest) {
	if err := s.requests.Create(rr); err != nil {
		log.Errorf("[Reviews] Persisting review request for invoice %s failed: %v", rr.InvoiceID, err)
	}
}

func classifyGatewayError(err error) string {
	switch {
	case errors.Is(err, clicksend.ErrInsufficientCredit):
		return models.ReviewStatusGatewayNoCredit
	case errors.Is(err, clicksend.ErrInvalidCredentials):
		return models.ReviewStatusGatewayAuthFailed
	case errors.Is(err, clicksend.ErrMessageTooLong):
		return models.ReviewStatusMessageTooLong
	default:
		return models.ReviewStatusFailed
	}
}

func templateFor(account *models.Account) string {
	if strings.TrimSpace(account.SMSTemplate) != "" {
		return account.SMSTemplate
	}
	return models.DefaultSMSTemplate
}

func customerFirstName(contact xero.Contact) string {
	if contact.FirstName != "" {
		return contact.FirstName
	}
	if fields := strings.Fields(contact.Name); len(fields) > 0 {
		return fields[0]
	}
	return contact.Name
}

// RenderTemplate substitutes {placeholder} tokens in a message template.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
