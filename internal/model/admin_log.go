package model

import "time"

// Admin action kinds recorded in the audit log.
const (
	ActionSetLimit = "SET_LIMIT"
	ActionAddExtra = "ADD_EXTRA"
	ActionReset    = "RESET_LIMIT"
)

// AdminLog is an append-only audit trail of admin mutations.
type AdminLog struct {
	ID        uint `gorm:"primaryKey"`
	AdminID   int64
	Action    string
	TargetID  int64 `gorm:"index"`
	Details   string
	CreatedAt time.Time
}
