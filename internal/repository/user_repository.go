package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"virtual-number-bot/internal/model"
)

// Profile carries the fields Telegram reports about a user on every
// contact.
type Profile struct {
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
	IsBot        bool
}

// UserRepository handles CRUD for users.
type UserRepository struct {
	db           *gorm.DB
	defaultLimit int
}

func NewUserRepository(db *gorm.DB, defaultLimit int) *UserRepository {
	return &UserRepository{db: db, defaultLimit: defaultLimit}
}

// Upsert finds or creates a user and refreshes profile fields plus the
// last-active timestamp. New users get a quota row with the default
// limit in the same transaction.
func (r *UserRepository) Upsert(ctx context.Context, userID int64, profile Profile) (*model.User, error) {
	var user model.User
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", userID).First(&user).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"username":       profile.Username,
				"first_name":     profile.FirstName,
				"last_name":      profile.LastName,
				"language_code":  profile.LanguageCode,
				"is_premium":     profile.IsPremium,
				"last_active_at": now,
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			return nil
		case err == gorm.ErrRecordNotFound:
			user = model.User{
				ID:           userID,
				Username:     profile.Username,
				FirstName:    profile.FirstName,
				LastName:     profile.LastName,
				LanguageCode: profile.LanguageCode,
				IsPremium:    profile.IsPremium,
				IsBot:        profile.IsBot,
				JoinedAt:     now,
				LastActiveAt: now,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			quota := model.Quota{
				UserID:    userID,
				MaxLimit:  r.defaultLimit,
				LastReset: now,
			}
			if err := tx.Create(&quota).Error; err != nil {
				return fmt.Errorf("create quota: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("find user: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Search finds users by exact id or by username substring.
func (r *UserRepository) Search(ctx context.Context, term string, id int64) ([]model.User, error) {
	var users []model.User
	db := r.db.WithContext(ctx)
	if id > 0 {
		db = db.Where("id = ?", id)
	} else {
		db = db.Where("username LIKE ?", "%"+term+"%")
	}
	if err := db.Limit(10).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountActiveSince counts users whose last contact is after the cutoff.
func (r *UserRepository) CountActiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("last_active_at >= ?", cutoff).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
