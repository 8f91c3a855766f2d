// Package audit exports the reservation history to Excel workbooks for
// administrative review. Nothing is ever deleted from the store, so the
// export is the full lifecycle record including cancelled holds.
package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"roomreserve/internal/model"
)

// Store provides the data the export reads.
type Store interface {
	ListReservations(ctx context.Context) ([]model.Reservation, error)
	ListActiveRooms(ctx context.Context) ([]model.Room, error)
}

// Exporter builds reservation history workbooks.
type Exporter struct {
	store Store
}

// NewExporter creates an exporter.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

var reservationColumns = []string{
	"ID", "Room", "Requester", "Start", "End", "Party Size",
	"Purpose", "Status", "Hold Expiry", "Created At",
}

// WriteTo writes an xlsx workbook with one sheet of reservations to w.
func (e *Exporter) WriteTo(ctx context.Context, w io.Writer) error {
	reservations, err := e.store.ListReservations(ctx)
	if err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}
	rooms, err := e.store.ListActiveRooms(ctx)
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	roomNames := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = r.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reservations"
	f.SetSheetName("Sheet1", sheet)

	if err := writeRow(f, sheet, 1, toAny(reservationColumns)); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(reservationColumns), 1)
		_ = f.SetCellStyle(sheet, startCell, endCell, style)
	}

	for i, r := range reservations {
		name := roomNames[r.RoomID]
		if name == "" {
			name = fmt.Sprintf("room %d", r.RoomID)
		}
		expiry := ""
		if r.HoldExpiry != nil {
			expiry = r.HoldExpiry.Format(time.RFC3339)
		}
		row := []any{
			r.ID, name, r.Requester,
			r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339),
			r.PartySize, r.Purpose, r.Status, expiry,
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
