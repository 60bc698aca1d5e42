package repository

import (
	"time"

	"github.com/MitchCasey/ReviewPing/app/models"
)

// AccountRepository defines the interface for account-related database
// operations, including the two balance mutation paths of the ledger.
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(id uint) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	GetByAPIKeyHash(hash string) (*models.Account, error)
	Update(account *models.Account) error
	List(offset, limit int) ([]models.Account, error)
	Count() (int64, error)

	// DebitBalance atomically subtracts cents from the balance, guarded by
	// a minimum-balance predicate. Returns false when the balance would go
	// negative; the row is untouched in that case.
	DebitBalance(id uint, cents int64) (bool, error)
	// CreditBalance atomically adds cents to both the balance and the
	// lifetime funded total.
	CreditBalance(id uint, cents int64) error
}

// ProviderConnectionRepository defines the interface for Xero connection
// operations.
type ProviderConnectionRepository interface {
	Upsert(conn *models.ProviderConnection) error
	GetByID(id uint) (*models.ProviderConnection, error)
	GetActiveByTenantID(tenantID string) (*models.ProviderConnection, error)
	ListActive() ([]models.ProviderConnection, error)
	ListExpiring(window time.Duration) ([]models.ProviderConnection, error)
	SaveTokens(conn *models.ProviderConnection) error
	MarkInactive(conn *models.ProviderConnection) error
}

// GoogleCredentialRepository defines the interface for Google credential
// operations.
type GoogleCredentialRepository interface {
	Upsert(cred *models.GoogleCredential) error
	GetByAccountID(accountID uint) (*models.GoogleCredential, error)
	ListExpiring(window time.Duration) ([]models.GoogleCredential, error)
	SaveTokens(cred *models.GoogleCredential) error
	MarkInactive(cred *models.GoogleCredential) error
}

// ReviewRequestRepository defines the interface for review request outcome
// records.
type ReviewRequestRepository interface {
	Create(rr *models.ReviewRequest) error
	Update(rr *models.ReviewRequest) error
	GetByID(id uint) (*models.ReviewRequest, error)
	// HasSent reports whether a request for this invoice already reached
	// status "sent" — the durable idempotency guard before any send.
	HasSent(accountID uint, invoiceID string) (bool, error)
	ListByAccount(accountID uint, offset, limit int) ([]models.ReviewRequest, error)
	CountByAccount(accountID uint) (int64, error)
}
