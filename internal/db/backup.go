package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BackupOptions configures periodic database snapshots.
type BackupOptions struct {
	Dir           string
	Interval      time.Duration
	RetentionDays int
}

// Backupper takes periodic snapshots of the reservation database.
// Snapshots use VACUUM INTO so they stay consistent under WAL writes.
type Backupper struct {
	db     *DB
	opts   BackupOptions
	logger *zerolog.Logger
}

func NewBackupper(db *DB, opts BackupOptions, logger *zerolog.Logger) *Backupper {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	return &Backupper{db: db, opts: opts, logger: logger}
}

// Start runs the backup loop until ctx is cancelled. The first snapshot
// runs immediately.
func (b *Backupper) Start(ctx context.Context) {
	if b.opts.Dir == "" {
		b.logger.Info().Msg("database backups disabled")
		return
	}

	b.logger.Info().
		Str("dir", b.opts.Dir).
		Dur("interval", b.opts.Interval).
		Msg("backup loop started")

	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()

	if err := b.Snapshot(ctx); err != nil {
		b.logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Snapshot(ctx); err != nil {
				b.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			b.pruneOld()
		}
	}
}

// Snapshot writes one consistent copy of the database.
func (b *Backupper) Snapshot(ctx context.Context) error {
	if err := os.MkdirAll(b.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("reservations_%s.db", time.Now().Format("20060102_150405"))
	path := filepath.Join(b.opts.Dir, name)

	// VACUUM INTO rejects single quotes in the target path.
	if strings.ContainsRune(path, '\'') {
		return fmt.Errorf("backup path %q contains a quote", path)
	}
	if _, err := b.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", path)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}

	b.logger.Info().Str("path", path).Msg("database snapshot written")
	return nil
}

func (b *Backupper) pruneOld() {
	if b.opts.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(b.opts.Dir)
	if err != nil {
		b.logger.Error().Err(err).Msg("read backup directory failed")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -b.opts.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "reservations_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			b.logger.Info().Str("file", entry.Name()).Msg("pruning old snapshot")
			_ = os.Remove(filepath.Join(b.opts.Dir, entry.Name()))
		}
	}
}
