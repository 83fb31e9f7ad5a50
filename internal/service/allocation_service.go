package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"virtual-number-bot/internal/generator"
	"virtual-number-bot/internal/model"
	"virtual-number-bot/internal/repository"
)

// maxNumberAttempts bounds redraws when the store rejects a duplicate
// phone number. Exhausting it means the numbering space is saturated.
const maxNumberAttempts = 5

// StatusReport is a read-only snapshot of a user's quota.
type StatusReport struct {
	User         model.User
	Used         int
	TotalAllowed int
	Remaining    int
	LastReset    time.Time
}

// CanAllocate reports whether the next request would succeed.
func (s StatusReport) CanAllocate() bool {
	return s.Remaining > 0
}

// AllocationService issues number/code pairs against per-user quotas.
// The quota check, the history insert and the quota decrement run in
// one transaction, so a persisted allocation without a consumed slot
// (or the reverse) is never observable.
type AllocationService struct {
	db        *gorm.DB
	gen       *generator.Generator
	userRepo  *repository.UserRepository
	quotaRepo *repository.QuotaRepository
	allocRepo *repository.AllocationRepository
	otpLength int
	validity  time.Duration
}

func NewAllocationService(
	db *gorm.DB,
	gen *generator.Generator,
	userRepo *repository.UserRepository,
	quotaRepo *repository.QuotaRepository,
	allocRepo *repository.AllocationRepository,
	otpLength int,
	validity time.Duration,
) *AllocationService {
	return &AllocationService{
		db:        db,
		gen:       gen,
		userRepo:  userRepo,
		quotaRepo: quotaRepo,
		allocRepo: allocRepo,
		otpLength: otpLength,
		validity:  validity,
	}
}

// Register creates or refreshes a user from transport profile data.
func (s *AllocationService) Register(ctx context.Context, userID int64, profile repository.Profile) (*model.User, error) {
	user, err := s.userRepo.Upsert(ctx, userID, profile)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

// Request issues one number/code pair to the user, or ErrQuotaExceeded
// when the allowance is spent.
func (s *AllocationService) Request(ctx context.Context, userID int64, appName string) (*model.Allocation, error) {
	if appName == "" {
		appName = "Unknown"
	}

	var allocation model.Allocation
	drawn := ""

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quota, err := s.quotaRepo.GetTx(tx, userID)
		if err != nil {
			return err
		}
		if quota.Remaining() <= 0 {
			return ErrQuotaExceeded
		}

		now := time.Now()
		code := s.gen.Code(s.otpLength)

		inserted := false
		for attempt := 0; attempt < maxNumberAttempts; attempt++ {
			drawn = s.gen.Number()
			allocation = model.Allocation{
				UserID:      userID,
				PhoneNumber: drawn,
				Code:        code,
				AppName:     appName,
				CreatedAt:   now,
				ExpiresAt:   now.Add(s.validity),
			}
			err := s.allocRepo.CreateTx(tx, &allocation)
			if err == nil {
				inserted = true
				break
			}
			if errors.Is(err, repository.ErrNumberTaken) {
				// Issued in an earlier process life. Keep it in the
				// generator's set and redraw.
				log.Printf("[warn] number %s already in history, redrawing (attempt %d)", drawn, attempt+1)
				drawn = ""
				continue
			}
			return err
		}
		if !inserted {
			return ErrAllocationExhausted
		}

		// Re-checked at mutation time: the guarded update refuses the
		// increment if another request spent the last slot meanwhile.
		consumed, err := s.quotaRepo.ConsumeOne(tx, userID)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrQuotaExceeded
		}

		if err := tx.Model(&model.User{}).
			Where("id = ?", userID).
			Update("last_active_at", now).Error; err != nil {
			return err
		}
		return nil
	})

	switch {
	case err == nil:
		return &allocation, nil
	case errors.Is(err, ErrQuotaExceeded):
		if drawn != "" {
			s.gen.Forget(drawn)
		}
		return nil, ErrQuotaExceeded
	case errors.Is(err, ErrAllocationExhausted):
		log.Printf("[error] numbering space saturated for user %d after %d attempts", userID, maxNumberAttempts)
		return nil, ErrAllocationExhausted
	default:
		if drawn != "" {
			s.gen.Forget(drawn)
		}
		return nil, storeErr(err)
	}
}

// Status returns the user's quota snapshot.
func (s *AllocationService) Status(ctx context.Context, userID int64) (*StatusReport, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	quota, err := s.quotaRepo.Get(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return &StatusReport{
		User:         *user,
		Used:         quota.Used,
		TotalAllowed: quota.TotalAllowed(),
		Remaining:    quota.Remaining(),
		LastReset:    quota.LastReset,
	}, nil
}

// History returns the user's most recent allocations.
func (s *AllocationService) History(ctx context.Context, userID int64, limit int) ([]model.Allocation, error) {
	allocations, err := s.allocRepo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return allocations, nil
}
