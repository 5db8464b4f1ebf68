package service

import (
	"context"
	"fmt"
	"slotbook/config"
	"slotbook/infras/otel"
	"slotbook/internal/domains/settings/model/dto"
	"slotbook/internal/store"
	"slotbook/shared/constant"
	"slotbook/shared/failure"
	"slotbook/shared/timezone"

	"github.com/rs/zerolog/log"
)

type Settings interface {
	Get(ctx context.Context) (dto.SettingsResponse, error)
	Put(ctx context.Context, req dto.PutSettingsRequest) (dto.SettingsResponse, error)
}

type serviceImpl struct {
	store store.Store
	cfg   *config.Config
	otel  otel.Otel
}

func New(store store.Store, cfg *config.Config, otel otel.Otel) Settings {
	return &serviceImpl{
		store: store,
		cfg:   cfg,
		otel:  otel,
	}
}

func (s *serviceImpl) Get(ctx context.Context) (res dto.SettingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".settings.Get")
	defer scope.End()

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get settings")

		return res, fmt.Errorf("failed to get settings: %w", err)
	}

	res.FromModels(settings)

	return res, nil
}

// Put upserts the given keys. Keys not named are left alone.
func (s *serviceImpl) Put(ctx context.Context, req dto.PutSettingsRequest) (res dto.SettingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".settings.Put")
	defer scope.End()

	if !s.cfg.Authoritative() {
		return res, failure.LocalModeError
	}

	settings := req.ToModel(timezone.Now())

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.PutSettings(ctx, settings); err != nil {
			return err
		}

		_, err := tx.BumpVersion(ctx)

		return err
	})
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int("count", len(settings)).Msg("failed to put settings")

		return res, fmt.Errorf("failed to put settings: %w", err)
	}

	return s.Get(ctx)
}
