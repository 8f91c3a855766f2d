// One-shot hold sweep for external schedulers. Cancels every pending
// reservation whose hold expiry has passed, prints the count, and exits.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"roomreserve/internal/config"
	"roomreserve/internal/db"
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sw := sweeper.New(database, cfg.SweepInterval(), &logger)
	cancelled, err := sw.SweepOnce(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Int("cancelled", cancelled).Msg("sweep finished with errors")
		os.Exit(1)
	}
	logger.Info().Int("cancelled", cancelled).Msg("sweep complete")
}
