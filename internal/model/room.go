package model

import "time"

// Room represents a bookable library room. Rooms are owned by an
// administrative collaborator and are immutable during the booking flow.
type Room struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Capacity      int       `json:"capacity"`
	HasProjector  bool      `json:"has_projector"`
	HasWhiteboard bool      `json:"has_whiteboard"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Fits reports whether a party of the given size fits the room.
func (r *Room) Fits(partySize int) bool {
	return partySize > 0 && partySize <= r.Capacity
}
