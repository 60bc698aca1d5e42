package repository

import (
	"github.com/MitchCasey/ReviewPing/app/models"
	"gorm.io/gorm"
)

type reviewRequestRepository struct {
	db *gorm.DB
}

// NewReviewRequestRepository creates a review request repository backed by
// GORM.
func NewReviewRequestRepository(db *gorm.DB) ReviewRequestRepository {
	return &reviewRequestRepository{db: db}
}

func (r *reviewRequestRepository) Create(rr *models.ReviewRequest) error {
	return r.db.Create(rr).Error
}

func (r *reviewRequestRepository) Update(rr *models.ReviewRequest) error {
	return r.db.Save(rr).Error
}

func (r *reviewRequestRepository) GetByID(id uint) (*models.ReviewRequest, error) {
	var rr models.ReviewRequest
	if err := r.db.First(&rr, id).Error; err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *reviewRequestRepository) HasSent(accountID uint, invoiceID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ReviewRequest{}).
		Where("account_id = ? AND invoice_id = ? AND status = ?", accountID, invoiceID, models.ReviewStatusSent).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reviewRequestRepository) ListByAccount(accountID uint, offset, limit int) ([]models.ReviewRequest, error) {
	var rrs []models.ReviewRequest
	err := r.db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rrs).Error
	return rrs, err
}

func (r *reviewRequestRepository) CountByAccount(accountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ReviewRequest{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
