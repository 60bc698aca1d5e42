package models

import "time"

// Review request delivery statuses. Everything except pending is terminal;
// the paywall and gateway statuses are deliberately distinct from a generic
// "failed" because each implies a different operator action.
const (
	ReviewStatusPending             = "pending"
	ReviewStatusSent                = "sent"
	ReviewStatusDelivered           = "delivered"
	ReviewStatusFailed              = "failed"
	ReviewStatusNoPhone             = "no_phone"
	ReviewStatusInsufficientBalance = "insufficient_balance"
	ReviewStatusGatewayNoCredit     = "gateway_no_credit"
	ReviewStatusGatewayAuthFailed   = "gateway_auth_failed"
	ReviewStatusMessageTooLong      = "message_too_long"
	ReviewStatusReauthRequired      = "reauth_required"
)

// ReviewRequest records one attempt to send a review-request SMS for a paid
// invoice. One row is written per triggering invoice event, including
// failures, so support can always answer "did we try". For a given
// (account_id, invoice_id) at most one row may ever reach status "sent";
// the processor enforces this with an existence check before sending.
type ReviewRequest struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	AccountID        uint       `gorm:"not null;index:ix_review_requests_account_invoice,priority:1" json:"account_id"`
	InvoiceID        string     `gorm:"type:varchar(64);not null;index:ix_review_requests_account_invoice,priority:2" json:"invoice_id"`
	InvoiceNumber    string     `gorm:"type:varchar(64);default:''" json:"invoice_number"`
	CustomerName     string     `gorm:"type:varchar(200);default:''" json:"customer_name"`
	CustomerPhone    string     `gorm:"type:varchar(32);default:''" json:"customer_phone"`
	CustomerEmail    string     `gorm:"type:varchar(200);default:''" json:"customer_email"`
	Status           string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	GatewayMessageID string     `gorm:"type:varchar(128);default:''" json:"gateway_message_id"`
	CostCents        int64      `gorm:"not null;default:0" json:"cost_cents"`
	SentAt           *time.Time `gorm:"type:timestamp;default:null" json:"sent_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the status will not change automatically.
func (rr *ReviewRequest) IsTerminal() bool {
	return rr.Status != ReviewStatusPending
}
