package booking

import (
	"errors"

	"roomreserve/internal/db"
)

// Validation errors are rejected before touching storage.
var (
	ErrInvalidRange   = errors.New("start time must be before end time")
	ErrSlotMisaligned = errors.New("time range does not align to the booking grid")
	ErrInvalidParty   = errors.New("party size must be positive")
	ErrCapacity       = errors.New("party size exceeds room capacity")
	ErrOutsideWindow  = errors.New("start time is outside the allowed booking window")
	ErrNotOwner       = errors.New("reservation belongs to a different requester")
	ErrAlreadyDecided = errors.New("reservation already reached a final status")
	ErrHoldExpired    = errors.New("hold expired before confirmation")

	// ErrRoomUnavailable marks rooms taken out of service by the
	// administrative collaborator.
	ErrRoomUnavailable = errors.New("room is not available for booking")
)

// Storage-level outcomes surface under the same identities the
// repository raises, so errors.Is works across layers.
var (
	ErrConflict      = db.ErrConflict
	ErrNotFound      = db.ErrNotFound
	ErrRoomNotFound  = db.ErrRoomNotFound
	ErrTooManyActive = db.ErrTooManyActive
)
