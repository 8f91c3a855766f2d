package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"roomreserve/internal/db"
	"roomreserve/internal/metrics"
	"roomreserve/internal/model"
)

// SlotAvailability is one grid slot in an availability response.
type SlotAvailability struct {
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// AvailabilityResponse lists a room's slots for one day.
type AvailabilityResponse struct {
	RoomID int64              `json:"room_id"`
	Date   string             `json:"date"`
	Slots  []SlotAvailability `json:"slots"`
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_rooms")

	rooms, err := s.db.ListActiveRooms(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list rooms failed")
		writeError(w, http.StatusServiceUnavailable, "temporary failure, try again")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_slots")
	writeJSON(w, http.StatusOK, s.grid.Sequence())
}

// handleAvailability serves GET /api/rooms/{id}/availability?date=YYYY-MM-DD.
// A slot is available when no pending or confirmed reservation overlaps
// it. Responses are cached per room and day when redis is configured;
// writes invalidate the affected key.
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	roomID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || roomID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		dateStr = time.Now().UTC().Format("2006-01-02")
	}
	// All stored timestamps are UTC, so the day window is too.
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var cached AvailabilityResponse
	hit, err := s.cache.Get(r.Context(), roomID, dateStr, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("availability cache read failed")
	}
	if hit {
		writeJSON(w, http.StatusOK, &cached)
		return
	}

	if _, err := s.db.GetRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, db.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		s.logger.Error().Err(err).Msg("load room failed")
		writeError(w, http.StatusServiceUnavailable, "temporary failure, try again")
		return
	}

	dayStart, dayEnd := s.grid.DayWindow(date)
	active, err := s.db.ListActiveByRoomRange(r.Context(), roomID, dayStart, dayEnd)
	if err != nil {
		s.logger.Error().Err(err).Msg("list reservations failed")
		writeError(w, http.StatusServiceUnavailable, "temporary failure, try again")
		return
	}

	resp := AvailabilityResponse{RoomID: roomID, Date: dateStr}
	for _, slot := range s.grid.Sequence() {
		start, end := s.grid.SlotTimes(date, slot.Index)
		resp.Slots = append(resp.Slots, SlotAvailability{
			Label:     slot.Label,
			Start:     start,
			End:       end,
			Available: !anyOverlap(active, start, end),
		})
	}

	if err := s.cache.Set(r.Context(), roomID, dateStr, &resp); err != nil {
		s.logger.Warn().Err(err).Msg("availability cache write failed")
	}
	writeJSON(w, http.StatusOK, &resp)
}

func anyOverlap(reservations []model.Reservation, start, end time.Time) bool {
	for i := range reservations {
		if reservations[i].OverlapsRange(start, end) {
			return true
		}
	}
	return false
}
