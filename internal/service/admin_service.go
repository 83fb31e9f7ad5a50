package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"virtual-number-bot/internal/model"
	"virtual-number-bot/internal/repository"
)

// Stats summarizes bot usage for the admin dashboard command.
type Stats struct {
	TotalUsers   int64
	ActiveToday  int64
	TotalNumbers int64
	NumbersToday int64
	TopUsers     []model.Quota
}

// AdminService guards quota mutations behind a static allow-list and
// records every authorized mutation in the audit log, including no-ops.
// Each mutation and its audit entry commit in one transaction.
type AdminService struct {
	db        *gorm.DB
	adminIDs  map[int64]struct{}
	userRepo  *repository.UserRepository
	quotaRepo *repository.QuotaRepository
	allocRepo *repository.AllocationRepository
	logRepo   *repository.AdminLogRepository
}

func NewAdminService(
	db *gorm.DB,
	adminIDs []int64,
	userRepo *repository.UserRepository,
	quotaRepo *repository.QuotaRepository,
	allocRepo *repository.AllocationRepository,
	logRepo *repository.AdminLogRepository,
) *AdminService {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &AdminService{
		db:        db,
		adminIDs:  ids,
		userRepo:  userRepo,
		quotaRepo: quotaRepo,
		allocRepo: allocRepo,
		logRepo:   logRepo,
	}
}

// IsAdmin reports whether the id is on the allow-list.
func (s *AdminService) IsAdmin(userID int64) bool {
	_, ok := s.adminIDs[userID]
	return ok
}

// SetMaxLimit overwrites a user's base allotment. Remaining capacity
// may go negative when the new limit is below current usage; that is
// allowed and simply blocks further allocations.
func (s *AdminService) SetMaxLimit(ctx context.Context, adminID, targetID int64, newLimit int) error {
	if !s.IsAdmin(adminID) {
		return ErrNotAuthorized
	}
	return s.mutate(ctx, func(tx *gorm.DB) error {
		if err := s.quotaRepo.SetMaxLimit(tx, targetID, newLimit); err != nil {
			return err
		}
		return s.audit(tx, adminID, model.ActionSetLimit, targetID, fmt.Sprintf("set limit to %d", newLimit))
	})
}

// GrantExtra raises a user's bonus allowance. Negative amounts revoke
// earlier grants but may never push the cumulative bonus below zero;
// the store-level guard rejects such grants even when they race.
func (s *AdminService) GrantExtra(ctx context.Context, adminID, targetID int64, amount int) error {
	if !s.IsAdmin(adminID) {
		return ErrNotAuthorized
	}
	return s.mutate(ctx, func(tx *gorm.DB) error {
		if _, err := s.quotaRepo.GetTx(tx, targetID); err != nil {
			return err
		}
		granted, err := s.quotaRepo.AddExtra(tx, targetID, amount)
		if err != nil {
			return err
		}
		if !granted {
			return fmt.Errorf("%w: %d would make the bonus negative", ErrInvalidGrant, amount)
		}
		return s.audit(tx, adminID, model.ActionAddExtra, targetID, fmt.Sprintf("granted %d extra numbers", amount))
	})
}

// Reset zeroes a user's used counter, restoring the full allowance.
func (s *AdminService) Reset(ctx context.Context, adminID, targetID int64) error {
	if !s.IsAdmin(adminID) {
		return ErrNotAuthorized
	}
	return s.mutate(ctx, func(tx *gorm.DB) error {
		if err := s.quotaRepo.Reset(tx, targetID, time.Now()); err != nil {
			return err
		}
		return s.audit(tx, adminID, model.ActionReset, targetID, "reset used counter")
	})
}

// UsageStats collects the numbers for the admin /stats command. Reads
// are not audited.
func (s *AdminService) UsageStats(ctx context.Context, adminID int64) (*Stats, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrNotAuthorized
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)

	totalUsers, err := s.userRepo.CountAll(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	activeToday, err := s.userRepo.CountActiveSince(ctx, startOfDay)
	if err != nil {
		return nil, storeErr(err)
	}
	totalNumbers, err := s.allocRepo.CountAll(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	numbersToday, err := s.allocRepo.CountSince(ctx, startOfDay)
	if err != nil {
		return nil, storeErr(err)
	}
	topUsers, err := s.quotaRepo.TopUsed(ctx, 5)
	if err != nil {
		return nil, storeErr(err)
	}

	return &Stats{
		TotalUsers:   totalUsers,
		ActiveToday:  activeToday,
		TotalNumbers: totalNumbers,
		NumbersToday: numbersToday,
		TopUsers:     topUsers,
	}, nil
}

// FindUsers searches by numeric id or username substring.
func (s *AdminService) FindUsers(ctx context.Context, adminID int64, term string, id int64) ([]model.User, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrNotAuthorized
	}
	users, err := s.userRepo.Search(ctx, term, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return users, nil
}

// mutate runs an authorized mutation plus its audit entry as one
// transaction and maps failures onto the service error taxonomy.
func (s *AdminService) mutate(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidGrant):
		return err
	default:
		return storeErr(err)
	}
}

func (s *AdminService) audit(tx *gorm.DB, adminID int64, action string, targetID int64, details string) error {
	entry := model.AdminLog{
		AdminID:  adminID,
		Action:   action,
		TargetID: targetID,
		Details:  details,
	}
	return s.logRepo.AppendTx(tx, &entry)
}
