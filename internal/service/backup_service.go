package service

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// keepBackups is how many snapshot files survive pruning.
const keepBackups = 10

// BackupService snapshots the SQLite file into a backup directory on a
// schedule. It copies the file as-is; SQLite keeps the on-disk image
// consistent between transactions and the single-connection pool means
// no write is in flight mid-copy for longer than one statement.
type BackupService struct {
	dbPath    string
	backupDir string
}

func NewBackupService(dbPath, backupDir string) *BackupService {
	return &BackupService{dbPath: dbPath, backupDir: backupDir}
}

// Run creates one gzip-compressed snapshot and prunes old ones.
func (s *BackupService) Run() error {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db.gz", time.Now().Format("20060102_150405"))
	target := filepath.Join(s.backupDir, name)

	if err := s.compress(target); err != nil {
		return err
	}

	if err := s.prune(); err != nil {
		log.Printf("[warn] prune backups: %v", err)
	}

	info, err := os.Stat(target)
	if err == nil {
		log.Printf("[info] backup written: %s (%d bytes)", target, info.Size())
	}
	return nil
}

func (s *BackupService) compress(target string) error {
	src, err := os.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	defer dst.Close()

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		return fmt.Errorf("compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush backup: %w", err)
	}
	return nil
}

// prune keeps the newest keepBackups snapshots and removes the rest.
func (s *BackupService) prune() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return err
	}

	var snapshots []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "backup_") && strings.HasSuffix(name, ".db.gz") {
			snapshots = append(snapshots, name)
		}
	}
	if len(snapshots) <= keepBackups {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(snapshots)
	for _, name := range snapshots[:len(snapshots)-keepBackups] {
		if err := os.Remove(filepath.Join(s.backupDir, name)); err != nil {
			return err
		}
	}
	return nil
}
