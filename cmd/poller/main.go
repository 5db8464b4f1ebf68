package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"slotbook/client/poller"
	"slotbook/config"
	"slotbook/internal/domains/sync/model/dto"
	"slotbook/shared/logger"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// A headless sync client. It mirrors the server's data and logs every
// snapshot it applies, which is handy for watching a deployment.
func main() {
	cfg := config.Get()

	logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poller.New(cfg.Sync.BaseURL, func(version int64, data dto.SnapshotData) {
		log.Info().
			Int64("version", version).
			Int("slots", len(data.Slots)).
			Int("bookings", len(data.Bookings)).
			Int("settings", len(data.Settings)).
			Msg("Snapshot applied")
	}, poller.WithInterval(time.Duration(cfg.Sync.PollIntervalSeconds)*time.Second))

	log.Info().Str("server", cfg.Sync.BaseURL).Msg("Polling for changes")

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Poller stopped")
	}

	log.Info().Int64("version", p.Version()).Msg("Poller stopped")
}
