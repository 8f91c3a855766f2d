// Package api exposes the booking engine over HTTP. Authentication is
// an external collaborator: the requester identity arrives as an opaque
// credential in the X-Requester header, and administrative endpoints
// require a separate bearer token.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"roomreserve/internal/audit"
	"roomreserve/internal/booking"
	"roomreserve/internal/cache"
	"roomreserve/internal/db"
	"roomreserve/internal/slots"
	"roomreserve/internal/sweeper"
)

// HTTPServer serves the booking API.
type HTTPServer struct {
	svc        *booking.Service
	db         *db.DB
	grid       *slots.Grid
	sweeper    *sweeper.Sweeper
	exporter   *audit.Exporter
	cache      *cache.AvailabilityCache
	validate   *validator.Validate
	limiter    *clientLimiter
	adminToken string
	logger     *zerolog.Logger
}

// Options configures the HTTP server.
type Options struct {
	RateLimitPerMinute int
	RateLimitBurst     int
	AdminToken         string
}

// NewHTTPServer creates the API server.
func NewHTTPServer(
	svc *booking.Service,
	database *db.DB,
	grid *slots.Grid,
	sw *sweeper.Sweeper,
	availability *cache.AvailabilityCache,
	opts Options,
	logger *zerolog.Logger,
) *HTTPServer {
	return &HTTPServer{
		svc:        svc,
		db:         database,
		grid:       grid,
		sweeper:    sw,
		exporter:   audit.NewExporter(database),
		cache:      availability,
		validate:   validator.New(),
		limiter:    newClientLimiter(opts.RateLimitPerMinute, opts.RateLimitBurst),
		adminToken: opts.AdminToken,
		logger:     logger,
	}
}

// Handler returns the routed handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/reservations", s.rateLimited(s.handleCreateHold))
	mux.HandleFunc("POST /api/reservations/{id}/confirm", s.rateLimited(s.handleConfirm))
	mux.HandleFunc("POST /api/reservations/{id}/cancel", s.rateLimited(s.handleCancel))
	mux.HandleFunc("GET /api/reservations/{id}", s.handleGetReservation)

	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{id}/availability", s.handleAvailability)
	mux.HandleFunc("GET /api/slots", s.handleSlots)

	mux.HandleFunc("POST /api/admin/sweep", s.adminOnly(s.handleSweep))
	mux.HandleFunc("GET /api/admin/export", s.adminOnly(s.handleExport))
	mux.HandleFunc("POST /api/admin/reservations/{id}/cancel", s.adminOnly(s.handleAdminCancel))

	return mux
}

// Serve runs the server until ctx is cancelled.
func (s *HTTPServer) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Int("port", port).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requester extracts the opaque credential set by the auth layer.
func requester(r *http.Request) string {
	return r.Header.Get("X-Requester")
}
