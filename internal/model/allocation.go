package model

import "time"

// Allocation is one issued number/code pair. Rows are append-only and
// kept as history even after they expire.
type Allocation struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      int64  `gorm:"index"`
	PhoneNumber string `gorm:"uniqueIndex"`
	Code        string
	AppName     string `gorm:"default:Unknown"`
	CreatedAt   time.Time
	ExpiresAt   time.Time
	IsUsed      bool `gorm:"default:false"`
}
