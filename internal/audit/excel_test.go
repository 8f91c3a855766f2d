package audit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"roomreserve/internal/model"
)

type fakeStore struct {
	reservations []model.Reservation
	rooms        []model.Room
}

func (f *fakeStore) ListReservations(context.Context) ([]model.Reservation, error) {
	return f.reservations, nil
}

func (f *fakeStore) ListActiveRooms(context.Context) ([]model.Room, error) {
	return f.rooms, nil
}

func TestExport(t *testing.T) {
	start := time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		rooms: []model.Room{{ID: 3, Name: "Seminar Room"}},
		reservations: []model.Reservation{
			{
				ID: "res-1", RoomID: 3, Requester: "alice@example.com",
				StartTime: start, EndTime: start.Add(time.Hour),
				PartySize: 4, Purpose: "project sync", Status: model.StatusConfirmed,
				CreatedAt: start.Add(-time.Hour),
			},
			{
				ID: "res-2", RoomID: 7, Requester: "bob@example.com",
				StartTime: start, EndTime: start.Add(30 * time.Minute),
				PartySize: 1, Status: model.StatusCancelled,
				CreatedAt: start.Add(-time.Hour),
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewExporter(store).WriteTo(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reservations")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two data rows")
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "res-1", rows[1][0])
	assert.Equal(t, "Seminar Room", rows[1][1])
	// Rooms missing from the catalog fall back to a numeric label.
	assert.Equal(t, "room 7", rows[2][1])
	assert.Equal(t, model.StatusCancelled, rows[2][7])
}
