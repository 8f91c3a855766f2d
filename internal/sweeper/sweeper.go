// Package sweeper reclaims abandoned holds: pending reservations whose
// hold expiry has passed are transitioned to cancelled on a fixed
// cadence, releasing their rooms.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomreserve/internal/metrics"
	"roomreserve/internal/model"
)

// Store is the storage boundary the sweeper depends on.
type Store interface {
	ExpiredPendingHolds(ctx context.Context, now time.Time) ([]model.Reservation, error)
	CompareAndSetStatus(ctx context.Context, id, expected, next string) (bool, error)
}

// Invalidator drops cached availability for ranges a sweep freed.
type Invalidator interface {
	Invalidate(ctx context.Context, roomID int64, dates ...string) error
}

// Sweeper cancels expired pending holds in batch passes.
type Sweeper struct {
	store       Store
	interval    time.Duration
	invalidator Invalidator
	logger      *zerolog.Logger
	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
}

// New creates a sweeper. A non-positive interval defaults to one minute.
func New(store Store, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// SetInvalidator wires an availability cache so sweep cancellations
// become visible as free slots right away instead of after the TTL.
func (s *Sweeper) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// Run starts the sweep loop. It sweeps once immediately, then on every
// tick until the context is cancelled or Stop is called.
func (s *Sweeper) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.interval).Msg("hold sweeper started")

	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("hold sweeper stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info().Msg("hold sweeper stopped")
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	start := time.Now()
	cancelled, err := s.SweepOnce(ctx, start)
	if err != nil {
		// Failures are retried naturally by the next pass; expired rows
		// stay pending until a transition lands.
		s.logger.Error().Err(err).Msg("sweep failed")
		return
	}
	if cancelled > 0 {
		s.logger.Info().
			Int("cancelled", cancelled).
			Dur("duration", time.Since(start)).
			Msg("expired holds reclaimed")
	}
}

// SweepOnce cancels every pending reservation whose hold expiry has
// passed at now and returns the count it cancelled. Each transition is
// a compare-and-set guarded by status=pending, so running concurrently
// with itself or with confirm/cancel is safe: a transition that lands
// first wins and this pass's update becomes a no-op.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	metrics.IncSweepRun()

	holds, err := s.store.ExpiredPendingHolds(ctx, now)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	freed := make(map[int64]map[string]bool)
	for _, hold := range holds {
		select {
		case <-ctx.Done():
			s.invalidateFreed(ctx, freed)
			return cancelled, ctx.Err()
		default:
		}

		applied, err := s.store.CompareAndSetStatus(ctx, hold.ID, model.StatusPending, model.StatusCancelled)
		if err != nil {
			// Leave the row for the next pass.
			s.logger.Error().Err(err).Str("reservation_id", hold.ID).Msg("expire transition failed")
			continue
		}
		if applied {
			cancelled++
			metrics.IncCancelled("expired")
			date := hold.StartTime.UTC().Format("2006-01-02")
			if freed[hold.RoomID] == nil {
				freed[hold.RoomID] = make(map[string]bool)
			}
			freed[hold.RoomID][date] = true
		}
	}

	s.invalidateFreed(ctx, freed)
	metrics.AddSweepCancelled(cancelled)
	return cancelled, nil
}

func (s *Sweeper) invalidateFreed(ctx context.Context, freed map[int64]map[string]bool) {
	if s.invalidator == nil {
		return
	}
	for roomID, dates := range freed {
		keys := make([]string, 0, len(dates))
		for d := range dates {
			keys = append(keys, d)
		}
		if err := s.invalidator.Invalidate(ctx, roomID, keys...); err != nil {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("availability cache invalidation failed")
		}
	}
}
