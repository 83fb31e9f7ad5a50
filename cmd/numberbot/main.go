package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"virtual-number-bot/internal/bot"
	"virtual-number-bot/internal/config"
	"virtual-number-bot/internal/generator"
	"virtual-number-bot/internal/repository"
	"virtual-number-bot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db, cfg.DefaultLimit)
	quotaRepo := repository.NewQuotaRepository(db, cfg.DefaultLimit)
	allocRepo := repository.NewAllocationRepository(db)
	logRepo := repository.NewAdminLogRepository(db)

	gen := generator.New(time.Now().UnixNano())
	allocSvc := service.NewAllocationService(db, gen, userRepo, quotaRepo, allocRepo, cfg.OTPLength, cfg.Validity)
	adminSvc := service.NewAdminService(db, cfg.AdminIDs, userRepo, quotaRepo, allocRepo, logRepo)

	telegramBot, err := bot.New(cfg.BotToken, allocSvc, adminSvc, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	backupSvc := service.NewBackupService(cfg.DatabaseURL, cfg.BackupDir)
	if _, err := scheduler.ScheduleInterval(cfg.BackupInterval, func() {
		if err := backupSvc.Run(); err != nil {
			log.Printf("backup: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule backups: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Virtual number bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
