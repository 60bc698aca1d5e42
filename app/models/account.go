package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	// DeactivationReasonRefreshFailed marks accounts whose provider connection
	// could not be refreshed and needs a manual reconnect.
	DeactivationReasonRefreshFailed = "provider_refresh_failed"
	DeactivationReasonManual        = "manual"
)

// Account is a business tenant. Balance and LifetimeFunded are held in integer
// cents; the balance must never go negative (debits are refused, not clamped).
type Account struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	BusinessName       string         `gorm:"type:varchar(150);not null" json:"business_name" validate:"required,min=2,max=150"`
	Email              string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	ReviewURL          string         `gorm:"type:varchar(500)" json:"review_url" validate:"omitempty,url,max=500"`
	SMSTemplate        string         `gorm:"type:text" json:"sms_template"`
	SMSEnabled         bool           `gorm:"default:true" json:"sms_enabled"`
	Balance            int64          `gorm:"not null;default:0" json:"balance"`
	LifetimeFunded     int64          `gorm:"not null;default:0" json:"lifetime_funded"`
	APIKeyHash         string         `gorm:"type:char(64);uniqueIndex;default:null" json:"-"`
	APIKeyPrefix       string         `gorm:"type:varchar(16);default:''" json:"api_key_prefix,omitempty"`
	APIKeyCreatedAt    *time.Time     `gorm:"type:timestamp;default:null" json:"api_key_created_at,omitempty"`
	APIKeyLastUsedAt   *time.Time     `gorm:"type:timestamp;default:null" json:"api_key_last_used_at,omitempty"`
	IsActive           bool           `gorm:"default:true;index" json:"is_active"`
	DeactivatedAt      *time.Time     `gorm:"type:timestamp;default:null" json:"deactivated_at,omitempty"`
	DeactivationReason string         `gorm:"type:varchar(100);default:''" json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// DefaultSMSTemplate is applied at signup until the owner customizes it.
const DefaultSMSTemplate = "Hi {customerName}! Thanks for choosing {businessName}. We'd love your feedback: {reviewUrl}"

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// Deactivate flags the account inactive without deleting it.
func (a *Account) Deactivate(reason string) {
	now := time.Now()
	a.IsActive = false
	a.DeactivatedAt = &now
	a.DeactivationReason = reason
}

// Reactivate clears a prior deactivation.
func (a *Account) Reactivate() {
	a.IsActive = true
	a.DeactivatedAt = nil
	a.DeactivationReason = ""
}

const apiKeyPrefix = "rvp_"

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// HashAPIKey returns the SHA-256 hash for the provided API key. Only the
// hash is stored; the raw key is shown once at generation time.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey rotates the account's API key and returns the new raw key.
func (a *Account) GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("api key generation failed: %w", err)
	}
	rawKey := apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b))

	now := time.Now()
	a.APIKeyHash = HashAPIKey(rawKey)
	a.APIKeyPrefix = rawKey[:16]
	a.APIKeyCreatedAt = &now
	a.APIKeyLastUsedAt = nil
	return rawKey, nil
}

// RevokeAPIKey invalidates the current API key.
func (a *Account) RevokeAPIKey() {
	a.APIKeyHash = ""
	a.APIKeyPrefix = ""
	a.APIKeyCreatedAt = nil
	a.APIKeyLastUsedAt = nil
}

// TouchAPIKeyUsage updates the last-used timestamp metadata.
func (a *Account) TouchAPIKeyUsage() {
	now := time.Now()
	a.APIKeyLastUsedAt = &now
}
