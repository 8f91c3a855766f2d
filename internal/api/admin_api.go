package api

import (
	"fmt"
	"net/http"
	"time"

	"roomreserve/internal/metrics"
)

func (s *HTTPServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_sweep")

	cancelled, err := s.sweeper.SweepOnce(r.Context(), time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("manual sweep failed")
		writeError(w, http.StatusServiceUnavailable, "sweep failed, try again")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=reservations_%s.xlsx", time.Now().Format("2006-01-02")))

	if err := s.exporter.WriteTo(r.Context(), w); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		// Headers are already out; nothing more we can signal.
	}
}

func (s *HTTPServer) handleAdminCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_cancel")

	id := r.PathValue("id")
	if err := s.svc.Cancel(r.Context(), id, "", true); err != nil {
		s.writeBookingError(w, err)
		return
	}

	if res, err := s.svc.Get(r.Context(), id, "", true); err == nil {
		s.invalidateAvailability(r, res.RoomID, res.StartTime)
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
}
