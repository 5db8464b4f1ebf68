package store

import (
	"slotbook/config"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	bookingRepo "slotbook/internal/domains/booking/repository"
	versionRepo "slotbook/internal/domains/dataversion/repository"
	settingsRepo "slotbook/internal/domains/settings/repository"
	slotRepo "slotbook/internal/domains/slot/repository"

	"github.com/rs/zerolog/log"
)

// New picks the store for the configured storage mode. Local mode gets an
// empty memory store so that read endpoints keep answering.
func New(
	cfg *config.Config,
	db *postgres.Connection,
	slots slotRepo.Slot,
	bookings bookingRepo.Booking,
	settings settingsRepo.Settings,
	versions versionRepo.DataVersion,
	otel otel.Otel,
) Store {
	if cfg.Storage.Mode == config.StorageModePostgres {
		return NewPostgres(db, cfg.Storage.Dataset, slots, bookings, settings, versions, otel)
	}

	log.Warn().Str("storage", cfg.Storage.Mode).Msg("Using in-process store, run a single instance only")

	return NewMemory(otel)
}
