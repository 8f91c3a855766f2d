package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roomreserve/internal/model"
)

// activeStatuses is the status set that occupies a time range.
const activeStatuses = "('pending', 'confirmed')"

// CreateHold atomically inserts a pending reservation if the room is
// free for [StartTime, EndTime). The overlap check and the insert run
// in one transaction, so among concurrent contenders for the same
// range at most one wins; the rest get ErrConflict.
//
// maxActivePerUser caps active reservations per requester inside the
// same transaction (0 disables the cap).
func (db *DB) CreateHold(ctx context.Context, r *model.Reservation, maxActivePerUser int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hold transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE room_id = ?
		AND status IN `+activeStatuses+`
		AND start_time < ? AND end_time > ?`,
		r.RoomID, r.EndTime.UTC(), r.StartTime.UTC(),
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if count > 0 {
		return ErrConflict
	}

	if maxActivePerUser > 0 {
		var active int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM reservations
			WHERE requester = ? AND status IN `+activeStatuses,
			r.Requester,
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("count active reservations: %w", err)
		}
		if active >= maxActivePerUser {
			return ErrTooManyActive
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, room_id, requester, start_time, end_time,
			party_size, purpose, status, hold_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RoomID, r.Requester, r.StartTime.UTC(), r.EndTime.UTC(),
		r.PartySize, r.Purpose, r.Status, utcPtr(r.HoldExpiry), r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit hold: %w", err)
	}
	return nil
}

// HasOverlap reports whether any active reservation for the room
// intersects [start, end) under half-open semantics. excludeID, when
// non-empty, skips that reservation so re-validating an existing one
// does not self-conflict.
func (db *DB) HasOverlap(ctx context.Context, roomID int64, start, end time.Time, excludeID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM reservations
		WHERE room_id = ?
		AND status IN ` + activeStatuses + `
		AND start_time < ? AND end_time > ?`
	args := []any{roomID, end.UTC(), start.UTC()}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return count > 0, nil
}

// GetReservation returns a reservation by id.
func (db *DB) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, room_id, requester, start_time, end_time, party_size,
			purpose, status, hold_expiry, created_at, updated_at
		FROM reservations WHERE id = ?`,
		id,
	)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return r, nil
}

// CompareAndSetStatus transitions a reservation from expected to next
// in a single guarded update. Returns whether the transition applied;
// a false result means another operation changed the row first.
// hold_expiry is cleared on any transition since only pending rows
// carry one.
func (db *DB) CompareAndSetStatus(ctx context.Context, id, expected, next string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, hold_expiry = NULL, updated_at = ?
		WHERE id = ? AND status = ?`,
		next, time.Now().UTC(), id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("transition %s -> %s: %w", expected, next, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// ExpiredPendingHolds returns pending reservations whose hold expiry
// has passed at now. Full rows, so the caller can tell which room and
// day each cancellation frees.
func (db *DB) ExpiredPendingHolds(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, room_id, requester, start_time, end_time, party_size,
			purpose, status, hold_expiry, created_at, updated_at
		FROM reservations
		WHERE status = 'pending' AND hold_expiry IS NOT NULL AND hold_expiry <= ?
		ORDER BY hold_expiry`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query expired holds: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListActiveByRoomRange returns active reservations for the room that
// intersect [from, to), ordered by start time.
func (db *DB) ListActiveByRoomRange(ctx context.Context, roomID int64, from, to time.Time) ([]model.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, room_id, requester, start_time, end_time, party_size,
			purpose, status, hold_expiry, created_at, updated_at
		FROM reservations
		WHERE room_id = ?
		AND status IN `+activeStatuses+`
		AND start_time < ? AND end_time > ?
		ORDER BY start_time`,
		roomID, to.UTC(), from.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListReservations returns the full reservation history ordered by
// creation time. Terminal rows are retained for audit, never deleted.
func (db *DB) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, room_id, requester, start_time, end_time, party_size,
			purpose, status, hold_expiry, created_at, updated_at
		FROM reservations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// utcPtr normalizes an optional timestamp so all stored times carry the
// same offset and compare correctly as text.
func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var r model.Reservation
	var purpose sql.NullString
	var holdExpiry sql.NullTime
	err := row.Scan(&r.ID, &r.RoomID, &r.Requester, &r.StartTime, &r.EndTime,
		&r.PartySize, &purpose, &r.Status, &holdExpiry, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if purpose.Valid {
		r.Purpose = purpose.String
	}
	if holdExpiry.Valid {
		t := holdExpiry.Time
		r.HoldExpiry = &t
	}
	return &r, nil
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
