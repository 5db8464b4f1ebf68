package main

import (
	"context"
	"os"
	"os/signal"
	"slotbook/config"
	"slotbook/di"
	"slotbook/helper"
	"slotbook/shared/logger"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const closeTimeout = 10 * time.Second

func main() {
	cfg := config.Get()

	logger.Setup(cfg)

	if cfg.Storage.Mode == config.StorageModePostgres && cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := di.InitializeApp()

	serveErr := app.HTTP.Serve(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := app.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("Failed to release resources")
	}

	if serveErr != nil {
		log.Fatal().Err(serveErr).Msg("HTTP server stopped")
	}
}
