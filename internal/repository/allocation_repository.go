package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"virtual-number-bot/internal/model"
)

// ErrNumberTaken reports a phone number that already exists in history.
var ErrNumberTaken = errors.New("phone number already issued")

// AllocationRepository stores issued number/code pairs.
type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// CreateTx inserts an allocation inside an open transaction. A unique
// index violation on the phone number maps to ErrNumberTaken so the
// caller can redraw.
func (r *AllocationRepository) CreateTx(tx *gorm.DB, allocation *model.Allocation) error {
	if err := tx.Create(allocation).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrNumberTaken
		}
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// ListRecent returns the newest allocations for a user.
func (r *AllocationRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]model.Allocation, error) {
	var allocations []model.Allocation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&allocations).Error; err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return allocations, nil
}

func (r *AllocationRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Allocation{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountSince counts allocations created after the cutoff.
func (r *AllocationRepository) CountSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Allocation{}).
		Where("created_at >= ?", cutoff).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// isUniqueViolation matches SQLite's unique constraint error without
// depending on driver error types.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
