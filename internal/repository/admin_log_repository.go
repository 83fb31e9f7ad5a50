package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"virtual-number-bot/internal/model"
)

// AdminLogRepository appends to the admin audit trail.
type AdminLogRepository struct {
	db *gorm.DB
}

func NewAdminLogRepository(db *gorm.DB) *AdminLogRepository {
	return &AdminLogRepository{db: db}
}

// AppendTx writes an audit entry inside an open transaction, so the
// entry commits or rolls back together with the mutation it records.
func (r *AdminLogRepository) AppendTx(tx *gorm.DB, entry *model.AdminLog) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("append admin log: %w", err)
	}
	return nil
}

func (r *AdminLogRepository) ListRecent(ctx context.Context, limit int) ([]model.AdminLog, error) {
	var entries []model.AdminLog
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list admin log: %w", err)
	}
	return entries, nil
}
