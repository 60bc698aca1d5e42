package models

import "time"

// ProviderConnection stores the OAuth tokens for one connected Xero
// organisation. Connections are marked inactive rather than deleted so the
// audit trail survives a disconnect or a revoked refresh token.
type ProviderConnection struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccountID    uint       `gorm:"not null;index:ux_provider_connections_account_tenant,unique,priority:1" json:"account_id"`
	TenantID     string     `gorm:"type:varchar(191);not null;index:ux_provider_connections_account_tenant,unique,priority:2;index" json:"tenant_id"`
	TenantName   string     `gorm:"type:varchar(200);default:''" json:"tenant_name"`
	AccessToken  string     `gorm:"type:text" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	ExpiresAt    *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	IsActive     bool       `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TokenExpiresWithin reports whether the access token expires inside the
// given window. A missing expiry counts as expired so a refresh is forced.
func (pc *ProviderConnection) TokenExpiresWithin(window time.Duration) bool {
	if pc.ExpiresAt == nil {
		return true
	}
	return time.Until(*pc.ExpiresAt) <= window
}

// Invalidate clears the stored secrets and deactivates the connection. Used
// when the provider reports the refresh token itself is revoked.
func (pc *ProviderConnection) Invalidate() {
	pc.IsActive = false
	pc.AccessToken = ""
	pc.RefreshToken = ""
	pc.ExpiresAt = nil
}
