package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	BotToken       string
	AdminIDs       []int64
	AdminUsername  string
	DatabaseURL    string
	DefaultLimit   int
	OTPLength      int
	Validity       time.Duration
	BackupDir      string
	BackupInterval time.Duration
	HistoryPage    int
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		BotToken:       strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		AdminIDs:       parseAdminIDs(os.Getenv("ADMIN_IDS")),
		AdminUsername:  strings.TrimPrefix(strings.TrimSpace(os.Getenv("ADMIN_USERNAME")), "@"),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DefaultLimit:   parsePositiveInt(os.Getenv("DEFAULT_LIMIT"), 10),
		OTPLength:      parsePositiveInt(os.Getenv("OTP_LENGTH"), 6),
		Validity:       parseHours(os.Getenv("VALIDITY_HOURS"), 24*time.Hour),
		BackupDir:      strings.TrimSpace(os.Getenv("BACKUP_DIR")),
		BackupInterval: parseHours(os.Getenv("BACKUP_INTERVAL_HOURS"), time.Hour),
		HistoryPage:    parsePositiveInt(os.Getenv("HISTORY_PAGE_SIZE"), 5),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "numbers.db"
	}

	if cfg.BackupDir == "" {
		cfg.BackupDir = "backups"
	}

	if cfg.BotToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}

	if len(cfg.AdminIDs) == 0 {
		return cfg, fmt.Errorf("ADMIN_IDS must list at least one Telegram id")
	}

	return cfg, nil
}

func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseHours(raw string, fallback time.Duration) time.Duration {
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || hours <= 0 {
		return fallback
	}
	return time.Duration(hours) * time.Hour
}
