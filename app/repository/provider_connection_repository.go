package repository

import (
	"time"

	"github.com/MitchCasey/ReviewPing/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type providerConnectionRepository struct {
	db *gorm.DB
}

// NewProviderConnectionRepository creates a connection repository backed by
// GORM.
func NewProviderConnectionRepository(db *gorm.DB) ProviderConnectionRepository {
	return &providerConnectionRepository{db: db}
}

func (r *providerConnectionRepository) Upsert(conn *models.ProviderConnection) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account_id"},
			{Name: "tenant_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"tenant_name",
			"access_token",
			"refresh_token",
			"expires_at",
			"is_active",
			"updated_at",
		}),
	}).Create(conn).Error; err != nil {
		return err
	}

	return r.db.Where("account_id = ? AND tenant_id = ?", conn.AccountID, conn.TenantID).
		First(conn).Error
}

func (r *providerConnectionRepository) GetByID(id uint) (*models.ProviderConnection, error) {
	var conn models.ProviderConnection
	if err := r.db.First(&conn, id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *providerConnectionRepository) GetActiveByTenantID(tenantID string) (*models.ProviderConnection, error) {
	var conn models.ProviderConnection
	err := r.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *providerConnectionRepository) ListActive() ([]models.ProviderConnection, error) {
	var conns []models.ProviderConnection
	err := r.db.Where("is_active = ?", true).Find(&conns).Error
	return conns, err
}

func (r *providerConnectionRepository) ListExpiring(window time.Duration) ([]models.ProviderConnection, error) {
	cutoff := time.Now().Add(window)
	var conns []models.ProviderConnection
	err := r.db.
		Where("is_active = ? AND (expires_at IS NULL OR expires_at <= ?)", true, cutoff).
		Find(&conns).Error
	return conns, err
}

// SaveTokens writes the token triple in one UPDATE so a crash cannot leave a
// mixed state of old refresh token and new access token.
func (r *providerConnectionRepository) SaveTokens(conn *models.ProviderConnection) error {
	return r.db.Model(&models.ProviderConnection{}).
		Where("id = ?", conn.ID).
		Updates(map[string]interface{}{
			"access_token":  conn.AccessToken,
			"refresh_token": conn.RefreshToken,
			"expires_at":    conn.ExpiresAt,
		}).Error
}

func (r *providerConnectionRepository) MarkInactive(conn *models.ProviderConnection) error {
	return r.db.Model(&models.ProviderConnection{}).
		Where("id = ?", conn.ID).
		Updates(map[string]interface{}{
			"is_active":     false,
			"access_token":  "",
			"refresh_token": "",
			"expires_at":    nil,
		}).Error
}
