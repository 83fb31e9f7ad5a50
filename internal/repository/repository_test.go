package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"virtual-number-bot/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func TestUpsertCreatesUserWithQuota(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db, 10)
	ctx := context.Background()

	user, err := repo.Upsert(ctx, 1001, Profile{Username: "alice", FirstName: "Alice"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if user.ID != 1001 || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.JoinedAt.IsZero() || user.LastActiveAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", user)
	}

	var quota model.Quota
	if err := db.First(&quota, "user_id = ?", int64(1001)).Error; err != nil {
		t.Fatalf("quota row missing: %v", err)
	}
	if quota.MaxLimit != 10 || quota.Used != 0 || quota.ExtraGiven != 0 {
		t.Fatalf("unexpected quota defaults %+v", quota)
	}
}

func TestUpsertRefreshesProfile(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db, 10)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, 1002, Profile{Username: "old"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	second, err := repo.Upsert(ctx, 1002, Profile{Username: "new", IsPremium: true})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second user")
	}

	stored, err := repo.FindByID(ctx, 1002)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Username != "new" || !stored.IsPremium {
		t.Fatalf("profile not refreshed: %+v", stored)
	}
	if !stored.LastActiveAt.After(first.LastActiveAt) {
		t.Fatalf("last active not touched: %v vs %v", stored.LastActiveAt, first.LastActiveAt)
	}

	var quotaCount int64
	if err := db.Model(&model.Quota{}).Where("user_id = ?", int64(1002)).Count(&quotaCount).Error; err != nil {
		t.Fatalf("count quotas: %v", err)
	}
	if quotaCount != 1 {
		t.Fatalf("expected one quota row, got %d", quotaCount)
	}
}

func TestPhoneNumberUniqueConstraint(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db, 10)
	allocations := NewAllocationRepository(db)
	ctx := context.Background()

	if _, err := users.Upsert(ctx, 1003, Profile{}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	now := time.Now()
	first := model.Allocation{UserID: 1003, PhoneNumber: "+917012345678", Code: "123456", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}
	if err := allocations.CreateTx(db, &first); err != nil {
		t.Fatalf("first create: %v", err)
	}

	dup := model.Allocation{UserID: 1003, PhoneNumber: "+917012345678", Code: "654321", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}
	err := allocations.CreateTx(db, &dup)
	if !errors.Is(err, ErrNumberTaken) {
		t.Fatalf("duplicate create returned %v, want ErrNumberTaken", err)
	}
}

func TestConsumeOneGuardsAllowance(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db, 1)
	quotas := NewQuotaRepository(db, 1)
	ctx := context.Background()

	if _, err := users.Upsert(ctx, 1004, Profile{}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	consumed, err := quotas.ConsumeOne(db, 1004)
	if err != nil || !consumed {
		t.Fatalf("first consume = (%t, %v), want success", consumed, err)
	}

	consumed, err = quotas.ConsumeOne(db, 1004)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if consumed {
		t.Fatalf("second consume succeeded past the allowance")
	}

	quota, err := quotas.Get(ctx, 1004)
	if err != nil {
		t.Fatalf("get quota: %v", err)
	}
	if quota.Used != 1 || quota.Remaining() != 0 {
		t.Fatalf("unexpected quota state %+v", quota)
	}
}

func TestGetCreatesMissingQuota(t *testing.T) {
	db := openTestDB(t)
	quotas := NewQuotaRepository(db, 10)
	ctx := context.Background()

	quota, err := quotas.Get(ctx, 1005)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if quota.MaxLimit != 10 || quota.Used != 0 {
		t.Fatalf("unexpected defaults %+v", quota)
	}
	if quota.LastReset.IsZero() {
		t.Fatalf("last reset not set")
	}
}

func TestListRecentNewestFirst(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db, 10)
	allocations := NewAllocationRepository(db)
	ctx := context.Background()

	if _, err := users.Upsert(ctx, 1006, Profile{}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		allocation := model.Allocation{
			UserID:      1006,
			PhoneNumber: "+9170123456" + string(rune('7'+i)),
			Code:        "111111",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			ExpiresAt:   base.Add(24 * time.Hour),
		}
		if err := allocations.CreateTx(db, &allocation); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	recent, err := allocations.ListRecent(ctx, 1006, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d allocations, want 2", len(recent))
	}
	if !recent[0].CreatedAt.After(recent[1].CreatedAt) {
		t.Fatalf("allocations not newest first: %v then %v", recent[0].CreatedAt, recent[1].CreatedAt)
	}
}
