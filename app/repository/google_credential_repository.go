package repository

import (
	"time"

	"github.com/MitchCasey/ReviewPing/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type googleCredentialRepository struct {
	db *gorm.DB
}

// NewGoogleCredentialRepository creates a Google credential repository
// backed by GORM.
func NewGoogleCredentialRepository(db *gorm.DB) GoogleCredentialRepository {
	return &googleCredentialRepository{db: db}
}

func (r *googleCredentialRepository) Upsert(cred *models.GoogleCredential) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token",
			"expires_at",
			"is_active",
			"updated_at",
		}),
	}).Create(cred).Error; err != nil {
		return err
	}

	return r.db.Where("account_id = ?", cred.AccountID).First(cred).Error
}

func (r *googleCredentialRepository) GetByAccountID(accountID uint) (*models.GoogleCredential, error) {
	var cred models.GoogleCredential
	if err := r.db.Where("account_id = ?", accountID).First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *googleCredentialRepository) ListExpiring(window time.Duration) ([]models.GoogleCredential, error) {
	cutoff := time.Now().Add(window)
	var creds []models.GoogleCredential
	err := r.db.
		Where("is_active = ? AND (expires_at IS NULL OR expires_at <= ?)", true, cutoff).
		Find(&creds).Error
	return creds, err
}

func (r *googleCredentialRepository) SaveTokens(cred *models.GoogleCredential) error {
	return r.db.Model(&models.GoogleCredential{}).
		Where("id = ?", cred.ID).
		Updates(map[string]interface{}{
			"access_token":  cred.AccessToken,
			"refresh_token": cred.RefreshToken,
			"expires_at":    cred.ExpiresAt,
		}).Error
}

func (r *googleCredentialRepository) MarkInactive(cred *models.GoogleCredential) error {
	return r.db.Model(&models.GoogleCredential{}).
		Where("id = ?", cred.ID).
		Updates(map[string]interface{}{
			"is_active":     false,
			"access_token":  "",
			"refresh_token": "",
			"expires_at":    nil,
		}).Error
}
