package service

import (
	"context"
	"errors"
	"fmt"
	"slotbook/config"
	"slotbook/infras/otel"
	versionService "slotbook/internal/domains/dataversion/service"
	"slotbook/internal/domains/slot/model"
	"slotbook/internal/domains/slot/model/dto"
	"slotbook/internal/store"
	"slotbook/shared"
	"slotbook/shared/cache"
	"slotbook/shared/constant"
	gDto "slotbook/shared/dto"
	"slotbook/shared/failure"

	"github.com/rs/zerolog/log"
)

// Listings are cached per data version, so a mutation never needs to
// invalidate anything: the next read simply misses.
const cacheGetAllSlot = "slot:gets"

type Slot interface {
	Create(ctx context.Context, req dto.CreateSlotsRequest) ([]dto.SlotResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter model.Filter) (dto.GetSlotsResponse, error)
	Get(ctx context.Context, id string) (dto.SlotResponse, error)
	Update(ctx context.Context, req dto.UpdateSlotRequest, id string) (dto.SlotResponse, error)
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	store    store.Store
	versions versionService.DataVersion
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
}

func New(store store.Store, versions versionService.DataVersion, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Slot {
	return &serviceImpl{
		store:    store,
		versions: versions,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateSlotsRequest) (res []dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.Create")
	defer scope.End()

	if !s.cfg.Authoritative() {
		return nil, failure.LocalModeError
	}

	slots := make([]model.TimeSlot, len(req.Slots))
	for i, item := range req.Slots {
		if slots[i], err = item.ToModel(constant.SystemActor); err != nil {
			return nil, failure.BadRequest(err)
		}
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertSlots(ctx, slots); err != nil {
			return err
		}

		_, err := tx.BumpVersion(ctx)

		return err
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil, failure.Conflict("slot already exists")
	}

	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int("count", len(slots)).Msg("failed to create slots")

		return nil, fmt.Errorf("failed to create slots: %w", err)
	}

	log.Info().Int("count", len(slots)).Msg("slots created")

	return dto.FromModels(slots), nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter model.Filter) (res dto.GetSlotsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.GetAll")
	defer scope.End()

	version, err := s.versions.Current(ctx)
	if err != nil {
		scope.TraceError(err)

		return res, err //nolint:wrapcheck
	}

	// Listings are cached per epoch and version, so a mutation or a
	// restarted counter moves readers to fresh keys.
	epoch, err := s.store.Epoch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read data epoch, slot cache skipped")

		epoch = constant.Empty
	}

	day := constant.Empty
	if filter.Date != nil {
		day = filter.Date.Format(constant.DayFormat)
	}

	cacheKey := shared.BuildCacheKey(cacheGetAllSlot, s.cfg.Storage.Dataset, epoch, version,
		req.Page, req.Limit, req.SortBy, req.SortDir, filter.SportID, day)
	cacheable := epoch != constant.Empty

	if cacheable {
		if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
			log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for slots")

			return res, nil
		}
	}

	slots, total, err := s.store.ListSlots(ctx, req, filter)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get slots")

		return res, fmt.Errorf("failed to get slots: %w", err)
	}

	res.FromModels(slots, total, req.Limit)

	if !cacheable {
		return res, nil
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil && !errors.Is(err, cache.ErrDisabled) {
			log.Warn().Err(err).Msg("failed to save slots to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.Get")
	defer scope.End()

	slot, err := s.store.GetSlot(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return res, failure.NotFound("slot not found")
	}

	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("slot", id).Msg("failed to get slot")

		return res, fmt.Errorf("failed to get slot: %w", err)
	}

	res.FromModel(slot)

	return res, nil
}

// Update edits a slot's descriptive fields or capacity. Capacity can never
// drop below the places already booked.
func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateSlotRequest, id string) (res dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.Update")
	defer scope.End()

	if !s.cfg.Authoritative() {
		return res, failure.LocalModeError
	}

	update, err := req.ToModel()
	if err != nil {
		return res, failure.BadRequest(err)
	}

	var updated model.TimeSlot

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		slot, err := tx.GetSlot(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return failure.NotFound("slot not found")
		}

		if err != nil {
			return err
		}

		if update.MaxCapacity != nil && *update.MaxCapacity < slot.CurrentBookings {
			return failure.BadRequestFromString(fmt.Sprintf("maxCapacity cannot be below current bookings (%d)", slot.CurrentBookings))
		}

		ok, err := tx.UpdateSlot(ctx, id, update, constant.SystemActor)
		if err != nil {
			return err
		}

		if !ok {
			return failure.Conflict("slot changed while updating, try again")
		}

		// Re-read under the row lock the update holds, so bookings that
		// landed after the first read are reflected.
		if updated, err = tx.GetSlot(ctx, id); err != nil {
			return err
		}

		_, err = tx.BumpVersion(ctx)

		return err
	})
	if err != nil {
		var fail *failure.Failure
		if errors.As(err, &fail) {
			return res, err
		}

		scope.TraceError(err)
		log.Error().Err(err).Str("slot", id).Msg("failed to update slot")

		return res, fmt.Errorf("failed to update slot: %w", err)
	}

	res.FromModel(updated)

	return res, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.Delete")
	defer scope.End()

	if !s.cfg.Authoritative() {
		return failure.LocalModeError
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		slot, err := tx.GetSlot(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return failure.NotFound("slot not found")
		}

		if err != nil {
			return err
		}

		if slot.CurrentBookings > 0 {
			return failure.Conflict("slot has bookings and cannot be deleted")
		}

		ok, err := tx.DeleteSlot(ctx, id)
		if err != nil {
			return err
		}

		if !ok {
			return failure.Conflict("slot changed while deleting, try again")
		}

		_, err = tx.BumpVersion(ctx)

		return err
	})
	if err != nil {
		var fail *failure.Failure
		if errors.As(err, &fail) {
			return err
		}

		scope.TraceError(err)
		log.Error().Err(err).Str("slot", id).Msg("failed to delete slot")

		return fmt.Errorf("failed to delete slot: %w", err)
	}

	log.Info().Str("slot", id).Msg("slot deleted")

	return nil
}
