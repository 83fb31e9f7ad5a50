package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DatabaseURL != "numbers.db" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.DefaultLimit != 10 {
		t.Errorf("default limit = %d, want 10", cfg.DefaultLimit)
	}
	if cfg.OTPLength != 6 {
		t.Errorf("otp length = %d, want 6", cfg.OTPLength)
	}
	if cfg.Validity != 24*time.Hour {
		t.Errorf("validity = %v, want 24h", cfg.Validity)
	}
	if cfg.BackupDir != "backups" || cfg.BackupInterval != time.Hour {
		t.Errorf("backup settings = %q %v", cfg.BackupDir, cfg.BackupInterval)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_IDS", "42")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing BOT_TOKEN")
	}
}

func TestLoadRequiresAdmins(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty ADMIN_IDS")
	}
}

func TestParseAdminIDs(t *testing.T) {
	ids := parseAdminIDs("1, 2,junk, -5, 30")
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 30 {
		t.Fatalf("parsed %v", ids)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "42,43")
	t.Setenv("ADMIN_USERNAME", "@boss")
	t.Setenv("DEFAULT_LIMIT", "25")
	t.Setenv("VALIDITY_HOURS", "48")
	t.Setenv("HISTORY_PAGE_SIZE", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.AdminIDs) != 2 {
		t.Errorf("admin ids = %v", cfg.AdminIDs)
	}
	if cfg.AdminUsername != "boss" {
		t.Errorf("admin username = %q, want without @", cfg.AdminUsername)
	}
	if cfg.DefaultLimit != 25 || cfg.Validity != 48*time.Hour || cfg.HistoryPage != 8 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
