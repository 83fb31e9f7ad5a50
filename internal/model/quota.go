package model

import "time"

// Quota tracks how many numbers a user may still request. One row per
// user, created together with the user.
type Quota struct {
	UserID     int64 `gorm:"primaryKey;autoIncrement:false"`
	MaxLimit   int   `gorm:"default:10"`
	Used       int   `gorm:"default:0"`
	ExtraGiven int   `gorm:"default:0"`
	LastReset  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	User       User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TotalAllowed is the base limit plus every extra granted by admins.
// It is always computed, never stored, so it cannot drift.
func (q Quota) TotalAllowed() int {
	return q.MaxLimit + q.ExtraGiven
}

// Remaining may go negative after an admin lowers the limit below the
// already used count. Negative simply blocks further allocations.
func (q Quota) Remaining() int {
	return q.TotalAllowed() - q.Used
}
