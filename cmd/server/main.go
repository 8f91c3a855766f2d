package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomreserve/internal/api"
	"roomreserve/internal/booking"
	"roomreserve/internal/cache"
	"roomreserve/internal/config"
	"roomreserve/internal/db"
	"roomreserve/internal/metrics"
	"roomreserve/internal/model"
	"roomreserve/internal/slots"
	"roomreserve/internal/sweeper"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("ROOMRESERVE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	if err := syncRoomCatalog(context.Background(), database, cfg.Rooms); err != nil {
		logger.Fatal().Err(err).Msg("room catalog sync failed")
	}

	grid, err := slots.NewGrid(slots.Config{
		DayStart:    cfg.Grid.DayStart,
		DayEnd:      cfg.Grid.DayEnd,
		SlotMinutes: cfg.Grid.SlotMinutes,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid slot grid config")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	availability := cache.New(rdb, cfg.CacheTTL())

	svc := booking.NewService(database, grid, booking.Config{
		HoldDuration:     cfg.HoldDuration(),
		MinAdvance:       cfg.MinAdvance(),
		MaxAdvance:       cfg.MaxAdvance(),
		MaxActivePerUser: cfg.Booking.MaxActivePerUser,
	}, &logger)

	sw := sweeper.New(database, cfg.SweepInterval(), &logger)
	sw.SetInvalidator(availability)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go sw.Run(ctx)

	backupper := db.NewBackupper(database, db.BackupOptions{
		Dir:           cfg.Backup.Dir,
		Interval:      cfg.BackupInterval(),
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	go backupper.Start(ctx)

	srv := api.NewHTTPServer(svc, database, grid, sw, availability, api.Options{
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
		AdminToken:         cfg.Server.AdminToken,
	}, &logger)

	logger.Info().Msg("room reservation server started")
	if err := srv.Serve(ctx, cfg.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

// syncRoomCatalog upserts the configured rooms. Rooms removed from the
// config keep their rows; mark them inactive instead of deleting so
// historical reservations stay resolvable.
func syncRoomCatalog(ctx context.Context, database *db.DB, rooms []config.RoomConfig) error {
	for _, rc := range rooms {
		room := &model.Room{
			ID:            rc.ID,
			Name:          rc.Name,
			Capacity:      rc.Capacity,
			HasProjector:  rc.HasProjector,
			HasWhiteboard: rc.HasWhiteboard,
			IsActive:      !rc.Inactive,
		}
		if err := database.UpsertRoom(ctx, room); err != nil {
			return fmt.Errorf("upsert room %d: %w", rc.ID, err)
		}
	}
	return nil
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
