package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roomreserve/internal/model"
)

// UpsertRoom creates or updates a room. Used to sync the room catalog
// from config at startup.
func (db *DB) UpsertRoom(ctx context.Context, room *model.Room) error {
	if room == nil {
		return fmt.Errorf("room is nil")
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, capacity, has_projector, has_whiteboard, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			capacity = excluded.capacity,
			has_projector = excluded.has_projector,
			has_whiteboard = excluded.has_whiteboard,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		room.ID, room.Name, room.Capacity, room.HasProjector, room.HasWhiteboard,
		room.IsActive, now, now,
	)
	return err
}

// GetRoom returns a room by id.
func (db *DB) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	err := db.QueryRowContext(ctx, `
		SELECT id, name, capacity, has_projector, has_whiteboard, is_active, created_at, updated_at
		FROM rooms WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Name, &r.Capacity, &r.HasProjector, &r.HasWhiteboard,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return &r, nil
}

// ListActiveRooms returns all active rooms ordered by id.
func (db *DB) ListActiveRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, capacity, has_projector, has_whiteboard, is_active, created_at, updated_at
		FROM rooms WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Capacity, &r.HasProjector, &r.HasWhiteboard,
			&r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
