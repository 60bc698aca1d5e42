package models

import "time"

// GoogleCredential stores a business's Google OAuth tokens, used to keep the
// review destination linked to their Google Business Profile. Same
// refresh/invalidate lifecycle as ProviderConnection, different provider.
type GoogleCredential struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccountID    uint       `gorm:"not null;uniqueIndex" json:"account_id"`
	AccessToken  string     `gorm:"type:text" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	ExpiresAt    *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	IsActive     bool       `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TokenExpiresWithin reports whether the access token expires inside the
// given window.
func (gc *GoogleCredential) TokenExpiresWithin(window time.Duration) bool {
	if gc.ExpiresAt == nil {
		return true
	}
	return time.Until(*gc.ExpiresAt) <= window
}

// Invalidate clears the stored secrets and deactivates the credential.
func (gc *GoogleCredential) Invalidate() {
	gc.IsActive = false
	gc.AccessToken = ""
	gc.RefreshToken = ""
	gc.ExpiresAt = nil
}
