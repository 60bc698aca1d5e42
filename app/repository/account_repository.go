package repository

import (
	"github.com/MitchCasey/ReviewPing/app/models"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository backed by GORM.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

func (r *accountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByAPIKeyHash(hash string) (*models.Account, error) {
	var account models.Account
	if err := r.db.Where("api_key_hash = ?", hash).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Update(account *models.Account) error {
	return r.db.Save(account).Error
}

func (r *accountRepository) List(offset, limit int) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Offset(offset).Limit(limit).Order("id").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Account{}).Count(&count).Error
	return count, err
}

// DebitBalance refuses rather than clamps: the WHERE predicate makes the
// read-check and the write a single statement, so concurrent debits cannot
// race the balance below zero.
func (r *accountRepository) DebitBalance(id uint, cents int64) (bool, error) {
	tx := r.db.Model(&models.Account{}).
		Where("id = ? AND balance >= ?", id, cents).
		UpdateColumn("balance", gorm.Expr("balance - ?", cents))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *accountRepository) CreditBalance(id uint, cents int64) error {
	return r.db.Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", cents),
			"lifetime_funded": gorm.Expr("lifetime_funded + ?", cents),
		}).Error
}
