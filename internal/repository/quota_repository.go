package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"virtual-number-bot/internal/model"
)

// QuotaRepository manages per-user quota rows.
type QuotaRepository struct {
	db           *gorm.DB
	defaultLimit int
}

func NewQuotaRepository(db *gorm.DB, defaultLimit int) *QuotaRepository {
	return &QuotaRepository{db: db, defaultLimit: defaultLimit}
}

// Get returns the quota row for a user, creating one with defaults if
// it is missing. Older deployments created users without quota rows.
func (r *QuotaRepository) Get(ctx context.Context, userID int64) (*model.Quota, error) {
	return r.get(r.db.WithContext(ctx), userID)
}

// GetTx is Get bound to an open transaction, for callers that need the
// read and a later write to see the same state.
func (r *QuotaRepository) GetTx(tx *gorm.DB, userID int64) (*model.Quota, error) {
	return r.get(tx, userID)
}

func (r *QuotaRepository) get(db *gorm.DB, userID int64) (*model.Quota, error) {
	var quota model.Quota
	err := db.Where("user_id = ?", userID).First(&quota).Error
	switch {
	case err == nil:
		return &quota, nil
	case err == gorm.ErrRecordNotFound:
		quota = model.Quota{
			UserID:    userID,
			MaxLimit:  r.defaultLimit,
			LastReset: time.Now(),
		}
		if err := db.Create(&quota).Error; err != nil {
			return nil, fmt.Errorf("create quota: %w", err)
		}
		return &quota, nil
	default:
		return nil, fmt.Errorf("find quota: %w", err)
	}
}

// ConsumeOne increments the used counter, guarded by the allowance so
// two racing requests cannot both pass a single remaining slot. Returns
// false when the user has no allowance left at mutation time.
func (r *QuotaRepository) ConsumeOne(tx *gorm.DB, userID int64) (bool, error) {
	result := tx.Model(&model.Quota{}).
		Where("user_id = ? AND used < max_limit + extra_given", userID).
		Update("used", gorm.Expr("used + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("consume quota: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AddExtra raises the cumulative admin-granted bonus. The update is
// guarded so the bonus can never be driven below zero, even by racing
// revokes. Returns false when the guard refused the change.
func (r *QuotaRepository) AddExtra(tx *gorm.DB, userID int64, amount int) (bool, error) {
	result := tx.Model(&model.Quota{}).
		Where("user_id = ? AND extra_given + ? >= 0", userID, amount).
		Update("extra_given", gorm.Expr("extra_given + ?", amount))
	if result.Error != nil {
		return false, fmt.Errorf("add extra: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SetMaxLimit overwrites the base allotment. Remaining capacity is
// always derived from the row, so nothing else needs recomputing.
func (r *QuotaRepository) SetMaxLimit(tx *gorm.DB, userID int64, newLimit int) error {
	if err := tx.Model(&model.Quota{}).
		Where("user_id = ?", userID).
		Update("max_limit", newLimit).Error; err != nil {
		return fmt.Errorf("set max limit: %w", err)
	}
	return nil
}

// Reset zeroes the used counter and stamps the reset time.
func (r *QuotaRepository) Reset(tx *gorm.DB, userID int64, at time.Time) error {
	if err := tx.Model(&model.Quota{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"used": 0, "last_reset": at}).Error; err != nil {
		return fmt.Errorf("reset quota: %w", err)
	}
	return nil
}

// TopUsed returns the heaviest consumers for the admin stats view.
func (r *QuotaRepository) TopUsed(ctx context.Context, limit int) ([]model.Quota, error) {
	var quotas []model.Quota
	if err := r.db.WithContext(ctx).
		Order("used DESC").Limit(limit).Find(&quotas).Error; err != nil {
		return nil, fmt.Errorf("top used: %w", err)
	}
	return quotas, nil
}
