// Package db is the reservation repository adapter over sqlite.
// The overlap check and the insert it guards run inside a single
// immediate transaction, which is the serialization point the rest of
// the engine depends on.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	// ErrConflict means the requested range overlaps an active
	// reservation. This is the expected outcome of contention, not a
	// system fault.
	ErrConflict = errors.New("time range conflicts with an existing reservation")

	// ErrNotFound means no reservation exists with the given id.
	ErrNotFound = errors.New("reservation not found")

	// ErrRoomNotFound means no room exists with the given id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrTooManyActive means the requester reached the active
	// reservation limit.
	ErrTooManyActive = errors.New("active reservation limit reached")
)

// DB wraps the sqlite connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL with a busy timeout keeps readers off the writer's back;
	// _txlock=immediate makes every transaction take the write lock up
	// front so check-and-insert serializes at BEGIN.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 1,
			has_projector BOOLEAN NOT NULL DEFAULT 0,
			has_whiteboard BOOLEAN NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			room_id INTEGER NOT NULL,
			requester TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			party_size INTEGER NOT NULL DEFAULT 1,
			purpose TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			hold_expiry DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_room_times ON reservations(room_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_expiry ON reservations(status, hold_expiry)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_requester ON reservations(requester)`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_active ON rooms(is_active)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
