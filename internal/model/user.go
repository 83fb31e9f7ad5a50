package model

import "time"

// User stores Telegram user metadata. The primary key is the Telegram
// user id itself, so all other tables reference users by it directly.
type User struct {
	ID           int64 `gorm:"primaryKey;autoIncrement:false"`
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool `gorm:"default:false"`
	IsBot        bool `gorm:"default:false"`
	JoinedAt     time.Time
	LastActiveAt time.Time
}
