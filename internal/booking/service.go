// Package booking owns the reservation lifecycle: the two-phase
// hold/confirm protocol, explicit cancellation, and the validation in
// front of the storage adapter's atomic check-and-insert.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roomreserve/internal/metrics"
	"roomreserve/internal/model"
	"roomreserve/internal/slots"
)

// Repository is the storage boundary the service depends on. All
// mutations must be atomic on the store's side; the service never
// holds a lock across storage round-trips.
type Repository interface {
	CreateHold(ctx context.Context, r *model.Reservation, maxActivePerUser int) error
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	CompareAndSetStatus(ctx context.Context, id, expected, next string) (bool, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
}

// Config holds booking rules.
type Config struct {
	// HoldDuration is how long a pending hold stays confirmable.
	HoldDuration time.Duration
	// MinAdvance rejects holds starting sooner than now+MinAdvance.
	// Zero disables the rule.
	MinAdvance time.Duration
	// MaxAdvance rejects holds starting later than now+MaxAdvance.
	// Zero disables the rule.
	MaxAdvance time.Duration
	// MaxActivePerUser caps active reservations per requester.
	// Zero disables the cap.
	MaxActivePerUser int
}

// Service is the reservation state machine.
type Service struct {
	repo   Repository
	grid   *slots.Grid
	fsm    *FSM
	cfg    Config
	logger *zerolog.Logger
	now    func() time.Time
}

// NewService creates a booking service.
func NewService(repo Repository, grid *slots.Grid, cfg Config, logger *zerolog.Logger) *Service {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = 15 * time.Minute
	}
	return &Service{
		repo:   repo,
		grid:   grid,
		fsm:    NewFSM(),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// HoldRequest is a client booking request.
type HoldRequest struct {
	RoomID    int64
	Requester string
	Start     time.Time
	End       time.Time
	PartySize int
	Purpose   string
}

// CreateHold validates the request and atomically inserts a pending
// reservation with a hold expiry. The overlap check and the insert run
// in one storage transaction; among concurrent contenders for an
// overlapping range exactly one succeeds, the rest get ErrConflict.
func (s *Service) CreateHold(ctx context.Context, req HoldRequest) (*model.Reservation, error) {
	now := s.now()

	// Clients may send any RFC3339 offset; the grid and the store are
	// UTC-canonical, so alignment is judged on the UTC wall clock.
	req.Start = req.Start.UTC()
	req.End = req.End.UTC()

	if req.PartySize <= 0 {
		return nil, ErrInvalidParty
	}
	if !req.Start.Before(req.End) {
		return nil, ErrInvalidRange
	}
	if !s.grid.AlignedRange(req.Start, req.End) {
		return nil, ErrSlotMisaligned
	}
	if s.cfg.MinAdvance > 0 && req.Start.Before(now.Add(s.cfg.MinAdvance)) {
		return nil, ErrOutsideWindow
	}
	if s.cfg.MaxAdvance > 0 && req.Start.After(now.Add(s.cfg.MaxAdvance)) {
		return nil, ErrOutsideWindow
	}

	room, err := s.repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("load room %d: %w", req.RoomID, err)
	}
	if !room.IsActive {
		return nil, ErrRoomUnavailable
	}
	if !room.Fits(req.PartySize) {
		return nil, ErrCapacity
	}

	expiry := now.Add(s.cfg.HoldDuration)
	r := &model.Reservation{
		ID:         uuid.NewString(),
		RoomID:     req.RoomID,
		Requester:  req.Requester,
		StartTime:  req.Start,
		EndTime:    req.End,
		PartySize:  req.PartySize,
		Purpose:    req.Purpose,
		Status:     model.StatusPending,
		HoldExpiry: &expiry,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.CreateHold(ctx, r, s.cfg.MaxActivePerUser); err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.IncHoldCreated("conflict")
			return nil, ErrConflict
		}
		if errors.Is(err, ErrTooManyActive) {
			metrics.IncHoldCreated("limited")
			return nil, ErrTooManyActive
		}
		metrics.IncHoldCreated("error")
		return nil, fmt.Errorf("create hold: %w", err)
	}

	metrics.IncHoldCreated("created")
	s.logger.Info().
		Str("reservation_id", r.ID).
		Int64("room_id", r.RoomID).
		Time("start", r.StartTime).
		Time("end", r.EndTime).
		Time("hold_expiry", expiry).
		Msg("hold created")
	return r, nil
}

// Confirm finalizes a pending hold. Expiry is judged against the wall
// clock, not sweeper execution: a hold past its expiry fails here even
// if the sweeper has not yet cancelled the row. The transition itself
// is a compare-and-set guarded by status=pending, so a concurrent
// sweep and confirm resolve to exactly one terminal state.
func (s *Service) Confirm(ctx context.Context, id, requester string) (*model.Reservation, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Requester != requester {
		return nil, ErrNotOwner
	}
	if r.IsTerminal() {
		return nil, ErrAlreadyDecided
	}

	now := s.now()
	if r.HoldExpired(now) {
		// The row is dead either way; cancelling it here just saves the
		// sweeper a pass. Losing the race to the sweeper is fine.
		if applied, casErr := s.repo.CompareAndSetStatus(ctx, id, model.StatusPending, model.StatusCancelled); casErr == nil && applied {
			metrics.IncCancelled("expired")
		}
		return nil, ErrHoldExpired
	}

	applied, err := s.repo.CompareAndSetStatus(ctx, id, model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm reservation: %w", err)
	}
	if !applied {
		// Another operation transitioned the row first.
		return nil, ErrAlreadyDecided
	}

	r.Status = model.StatusConfirmed
	r.HoldExpiry = nil
	r.UpdatedAt = now
	metrics.IncConfirmed()
	s.logger.Info().Str("reservation_id", id).Msg("reservation confirmed")
	return r, nil
}

// Cancel cancels a reservation. Requesters may cancel their own
// pending holds; admin callers may also cancel confirmed reservations.
// Cancelling an already-cancelled reservation is a no-op success.
func (s *Service) Cancel(ctx context.Context, id, requester string, admin bool) error {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !admin && r.Requester != requester {
		return ErrNotOwner
	}
	if r.Status == model.StatusCancelled {
		return nil
	}
	if r.Status == model.StatusConfirmed && !admin {
		return ErrAlreadyDecided
	}
	if !s.fsm.CanTransition(r.Status, model.StatusCancelled) {
		return ErrAlreadyDecided
	}

	applied, err := s.repo.CompareAndSetStatus(ctx, id, r.Status, model.StatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	if !applied {
		// Re-read: a concurrent cancel keeps this idempotent.
		r, err = s.repo.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == model.StatusCancelled {
			return nil
		}
		return ErrAlreadyDecided
	}

	reason := "requester"
	if admin {
		reason = "admin"
	}
	metrics.IncCancelled(reason)
	s.logger.Info().Str("reservation_id", id).Bool("admin", admin).Msg("reservation cancelled")
	return nil
}

// Get returns a reservation visible to the requester.
func (s *Service) Get(ctx context.Context, id, requester string, admin bool) (*model.Reservation, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && r.Requester != requester {
		return nil, ErrNotOwner
	}
	return r, nil
}
