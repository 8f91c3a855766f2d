package model

import "time"

// Reservation statuses. Pending is the only entry state; confirmed and
// cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Reservation represents a room reservation record.
type Reservation struct {
	ID         string     `json:"id"`
	RoomID     int64      `json:"room_id"`
	Requester  string     `json:"requester"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	PartySize  int        `json:"party_size"`
	Purpose    string     `json:"purpose,omitempty"`
	Status     string     `json:"status"`
	HoldExpiry *time.Time `json:"hold_expiry,omitempty"` // set only while pending
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsActive reports whether the reservation still occupies its time range.
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// IsTerminal reports whether the reservation reached a final status.
func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusConfirmed || r.Status == StatusCancelled
}

// HoldExpired reports whether a pending hold has passed its expiry at now.
// Expiry is defined by time, not by sweeper execution.
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.Status == StatusPending && r.HoldExpiry != nil && !now.Before(*r.HoldExpiry)
}

// OverlapsRange checks intersection with [start, end).
// Uses half-open interval semantics - the end boundary is exclusive,
// so back-to-back reservations do not overlap.
func (r *Reservation) OverlapsRange(start, end time.Time) bool {
	return start.Before(r.EndTime) && r.StartTime.Before(end)
}
