package booking

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomreserve/internal/model"
	"roomreserve/internal/slots"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateHold(ctx context.Context, r *model.Reservation, maxActive int) error {
	return m.Called(ctx, r, maxActive).Error(0)
}

func (m *mockRepo) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *mockRepo) CompareAndSetStatus(ctx context.Context, id, expected, next string) (bool, error) {
	args := m.Called(ctx, id, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func newTestService(t *testing.T, repo Repository, cfg Config) *Service {
	t.Helper()
	grid, err := slots.NewGrid(slots.DefaultConfig())
	require.NoError(t, err)
	logger := zerolog.New(io.Discard)
	return NewService(repo, grid, cfg, &logger)
}

func fixedNow() time.Time {
	return time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
}

func slotTime(hour, min int) time.Time {
	return time.Date(2030, 3, 4, hour, min, 0, 0, time.UTC)
}

func validRequest() HoldRequest {
	return HoldRequest{
		RoomID:    3,
		Requester: "alice@example.com",
		Start:     slotTime(10, 0),
		End:       slotTime(11, 0),
		PartySize: 4,
		Purpose:   "project sync",
	}
}

func room3() *model.Room {
	return &model.Room{ID: 3, Name: "Study Room 3", Capacity: 6, IsActive: true}
}

func TestCreateHold(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{HoldDuration: 15 * time.Minute})
		svc.now = fixedNow

		repo.On("GetRoom", ctx, int64(3)).Return(room3(), nil).Once()
		repo.On("CreateHold", ctx, mock.AnythingOfType("*model.Reservation"), 0).Return(nil).Once()

		r, err := svc.CreateHold(ctx, validRequest())
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, model.StatusPending, r.Status)
		require.NotNil(t, r.HoldExpiry)
		assert.Equal(t, fixedNow().Add(15*time.Minute), *r.HoldExpiry)
		repo.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		repo.On("GetRoom", ctx, int64(3)).Return(room3(), nil).Once()
		repo.On("CreateHold", ctx, mock.Anything, 0).Return(ErrConflict).Once()

		_, err := svc.CreateHold(ctx, validRequest())
		assert.ErrorIs(t, err, ErrConflict)
		repo.AssertExpectations(t)
	})

	t.Run("ValidationBeforeStorage", func(t *testing.T) {
		repo := new(mockRepo) // no expectations: storage must not be touched
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		tests := []struct {
			name    string
			mutate  func(*HoldRequest)
			wantErr error
		}{
			{"inverted range", func(r *HoldRequest) { r.Start, r.End = r.End, r.Start }, ErrInvalidRange},
			{"empty range", func(r *HoldRequest) { r.End = r.Start }, ErrInvalidRange},
			{"misaligned start", func(r *HoldRequest) { r.Start = slotTime(10, 15) }, ErrSlotMisaligned},
			{"outside day window", func(r *HoldRequest) { r.Start = slotTime(6, 0); r.End = slotTime(7, 0) }, ErrSlotMisaligned},
			{"zero party", func(r *HoldRequest) { r.PartySize = 0 }, ErrInvalidParty},
			{"negative party", func(r *HoldRequest) { r.PartySize = -2 }, ErrInvalidParty},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := validRequest()
				tt.mutate(&req)
				_, err := svc.CreateHold(ctx, req)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
		repo.AssertExpectations(t)
	})

	t.Run("OffsetTimesJudgedInUTC", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		ist := time.FixedZone("IST", 5*3600+30*60)

		// 10:00+05:30 is 04:30 UTC, off the grid and outside the day
		// window even though its own wall clock looks aligned.
		req := validRequest()
		req.Start = time.Date(2030, 3, 4, 10, 0, 0, 0, ist)
		req.End = time.Date(2030, 3, 4, 11, 0, 0, 0, ist)
		_, err := svc.CreateHold(ctx, req)
		assert.ErrorIs(t, err, ErrSlotMisaligned)
		repo.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything, mock.Anything)

		// 15:30+05:30 is 10:00 UTC, squarely on the grid.
		repo.On("GetRoom", ctx, int64(3)).Return(room3(), nil).Once()
		repo.On("CreateHold", ctx, mock.AnythingOfType("*model.Reservation"), 0).Return(nil).Once()

		req = validRequest()
		req.Start = time.Date(2030, 3, 4, 15, 30, 0, 0, ist)
		req.End = time.Date(2030, 3, 4, 16, 30, 0, 0, ist)
		r, err := svc.CreateHold(ctx, req)
		require.NoError(t, err)
		assert.True(t, r.StartTime.Equal(slotTime(10, 0)))
		assert.True(t, r.EndTime.Equal(slotTime(11, 0)))
		assert.Equal(t, time.UTC, r.StartTime.Location())
		repo.AssertExpectations(t)
	})

	t.Run("CapacityBeforeOverlap", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		repo.On("GetRoom", ctx, int64(3)).Return(room3(), nil).Once()

		req := validRequest()
		req.PartySize = 7
		_, err := svc.CreateHold(ctx, req)
		assert.ErrorIs(t, err, ErrCapacity)
		repo.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InactiveRoom", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		closed := room3()
		closed.IsActive = false
		repo.On("GetRoom", ctx, int64(3)).Return(closed, nil).Once()

		_, err := svc.CreateHold(ctx, validRequest())
		assert.ErrorIs(t, err, ErrRoomUnavailable)
	})

	t.Run("AdvanceWindow", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{
			MinAdvance: 2 * time.Hour,
			MaxAdvance: 3 * time.Hour,
		})
		svc.now = fixedNow // 09:00

		req := validRequest() // starts 10:00, under the 2h minimum
		_, err := svc.CreateHold(ctx, req)
		assert.ErrorIs(t, err, ErrOutsideWindow)

		req.Start = slotTime(12, 30) // past the 3h maximum
		req.End = slotTime(13, 0)
		_, err = svc.CreateHold(ctx, req)
		assert.ErrorIs(t, err, ErrOutsideWindow)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	pendingHold := func(expiry time.Time) *model.Reservation {
		return &model.Reservation{
			ID:         "res-1",
			RoomID:     3,
			Requester:  "alice@example.com",
			StartTime:  slotTime(10, 0),
			EndTime:    slotTime(11, 0),
			Status:     model.StatusPending,
			HoldExpiry: &expiry,
		}
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		repo.On("GetReservation", ctx, "res-1").Return(pendingHold(fixedNow().Add(time.Minute)), nil).Once()
		repo.On("CompareAndSetStatus", ctx, "res-1", model.StatusPending, model.StatusConfirmed).Return(true, nil).Once()

		r, err := svc.Confirm(ctx, "res-1", "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, r.Status)
		assert.Nil(t, r.HoldExpiry)
		repo.AssertExpectations(t)
	})

	t.Run("ExpiredEvenWithoutSweeper", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		// Expiry exactly at now: already ineligible.
		repo.On("GetReservation", ctx, "res-1").Return(pendingHold(fixedNow()), nil).Once()
		repo.On("CompareAndSetStatus", ctx, "res-1", model.StatusPending, model.StatusCancelled).Return(true, nil).Once()

		_, err := svc.Confirm(ctx, "res-1", "alice@example.com")
		assert.ErrorIs(t, err, ErrHoldExpired)
		repo.AssertNotCalled(t, "CompareAndSetStatus", ctx, "res-1", model.StatusPending, model.StatusConfirmed)
	})

	t.Run("NotOwner", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		repo.On("GetReservation", ctx, "res-1").Return(pendingHold(fixedNow().Add(time.Minute)), nil).Once()

		_, err := svc.Confirm(ctx, "res-1", "mallory@example.com")
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})

		repo.On("GetReservation", ctx, "missing").Return(nil, ErrNotFound).Once()

		_, err := svc.Confirm(ctx, "missing", "alice@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("AlreadyDecided", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		confirmed := pendingHold(fixedNow().Add(time.Minute))
		confirmed.Status = model.StatusConfirmed
		confirmed.HoldExpiry = nil
		repo.On("GetReservation", ctx, "res-1").Return(confirmed, nil).Once()

		_, err := svc.Confirm(ctx, "res-1", "alice@example.com")
		assert.ErrorIs(t, err, ErrAlreadyDecided)
	})

	t.Run("LostRaceToSweeper", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})
		svc.now = fixedNow

		repo.On("GetReservation", ctx, "res-1").Return(pendingHold(fixedNow().Add(time.Minute)), nil).Once()
		// The guarded update loses: the row changed between read and write.
		repo.On("CompareAndSetStatus", ctx, "res-1", model.StatusPending, model.StatusConfirmed).Return(false, nil).Once()

		_, err := svc.Confirm(ctx, "res-1", "alice@example.com")
		assert.ErrorIs(t, err, ErrAlreadyDecided)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	reservation := func(status string) *model.Reservation {
		return &model.Reservation{
			ID:        "res-1",
			Requester: "alice@example.com",
			Status:    status,
		}
	}

	t.Run("PendingByRequester", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})

		repo.On("GetReservation", ctx, "res-1").Return(reservation(model.StatusPending), nil).Once()
		repo.On("CompareAndSetStatus", ctx, "res-1", model.StatusPending, model.StatusCancelled).Return(true, nil).Once()

		assert.NoError(t, svc.Cancel(ctx, "res-1", "alice@example.com", false))
		repo.AssertExpectations(t)
	})

	t.Run("AlreadyCancelledIsNoop", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})

		repo.On("GetReservation", ctx, "res-1").Return(reservation(model.StatusCancelled), nil).Once()

		assert.NoError(t, svc.Cancel(ctx, "res-1", "alice@example.com", false))
		repo.AssertNotCalled(t, "CompareAndSetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ConfirmedNeedsAdmin", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})

		repo.On("GetReservation", ctx, "res-1").Return(reservation(model.StatusConfirmed), nil).Twice()
		repo.On("CompareAndSetStatus", ctx, "res-1", model.StatusConfirmed, model.StatusCancelled).Return(true, nil).Once()

		err := svc.Cancel(ctx, "res-1", "alice@example.com", false)
		assert.ErrorIs(t, err, ErrAlreadyDecided)

		assert.NoError(t, svc.Cancel(ctx, "res-1", "", true))
		repo.AssertExpectations(t)
	})

	t.Run("NotOwner", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})

		repo.On("GetReservation", ctx, "res-1").Return(reservation(model.StatusPending), nil).Once()

		err := svc.Cancel(ctx, "res-1", "mallory@example.com", false)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("ConcurrentCancelStaysIdempotent", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(t, repo, Config{})

		repo.On("GetReservation", ctx, "res-1").Return(reservation(model.StatusPending), nil).Once()
		repo.On("CompareAndSetStatus", ctx, "res-1", model.StatusPending, model.StatusCancelled).Return(false, nil).Once()
		repo.On("GetReservation", ctx, "res-1").Return(reservation(model.StatusCancelled), nil).Once()

		assert.NoError(t, svc.Cancel(ctx, "res-1", "alice@example.com", false))
		repo.AssertExpectations(t)
	})
}
