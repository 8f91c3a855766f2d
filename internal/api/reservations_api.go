package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roomreserve/internal/booking"
	"roomreserve/internal/metrics"
)

// CreateHoldRequest is the body of POST /api/reservations.
type CreateHoldRequest struct {
	RoomID    int64  `json:"room_id" validate:"required,gt=0"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
	PartySize int    `json:"party_size" validate:"required,gt=0"`
	Purpose   string `json:"purpose" validate:"max=500"`
}

func (s *HTTPServer) handleCreateHold(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_hold")

	who := requester(r)
	if who == "" {
		writeError(w, http.StatusUnauthorized, "missing requester identity")
		return
	}

	var req CreateHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC3339")
		return
	}

	res, err := s.svc.CreateHold(r.Context(), booking.HoldRequest{
		RoomID:    req.RoomID,
		Requester: who,
		Start:     start,
		End:       end,
		PartySize: req.PartySize,
		Purpose:   req.Purpose,
	})
	if err != nil {
		s.writeBookingError(w, err)
		return
	}

	s.invalidateAvailability(r, res.RoomID, res.StartTime)
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm")

	who := requester(r)
	if who == "" {
		writeError(w, http.StatusUnauthorized, "missing requester identity")
		return
	}

	res, err := s.svc.Confirm(r.Context(), r.PathValue("id"), who)
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel")

	who := requester(r)
	if who == "" {
		writeError(w, http.StatusUnauthorized, "missing requester identity")
		return
	}

	id := r.PathValue("id")
	if err := s.svc.Cancel(r.Context(), id, who, false); err != nil {
		s.writeBookingError(w, err)
		return
	}

	if res, err := s.svc.Get(r.Context(), id, who, false); err == nil {
		s.invalidateAvailability(r, res.RoomID, res.StartTime)
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_reservation")

	who := requester(r)
	if who == "" {
		writeError(w, http.StatusUnauthorized, "missing requester identity")
		return
	}

	res, err := s.svc.Get(r.Context(), r.PathValue("id"), who, false)
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeBookingError maps service sentinels to HTTP statuses. Storage
// failures collapse to a generic retryable 503 so internals never leak.
func (s *HTTPServer) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrConflict):
		writeError(w, http.StatusConflict, "time range already reserved")
	case errors.Is(err, booking.ErrTooManyActive):
		writeError(w, http.StatusConflict, "too many active reservations")
	case errors.Is(err, booking.ErrHoldExpired):
		writeError(w, http.StatusConflict, "hold expired, request a new one")
	case errors.Is(err, booking.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "reservation already decided")
	case errors.Is(err, booking.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not your reservation")
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, "reservation not found")
	case errors.Is(err, booking.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, booking.ErrRoomUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "room is not bookable")
	case errors.Is(err, booking.ErrCapacity):
		writeError(w, http.StatusUnprocessableEntity, "party exceeds room capacity")
	case errors.Is(err, booking.ErrInvalidParty),
		errors.Is(err, booking.ErrInvalidRange),
		errors.Is(err, booking.ErrSlotMisaligned),
		errors.Is(err, booking.ErrOutsideWindow):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("booking operation failed")
		writeError(w, http.StatusServiceUnavailable, "temporary failure, try again")
	}
}

func (s *HTTPServer) invalidateAvailability(r *http.Request, roomID int64, start time.Time) {
	if err := s.cache.Invalidate(r.Context(), roomID, start.Format("2006-01-02")); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("availability cache invalidation failed")
	}
}
