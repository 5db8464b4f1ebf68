package service

import (
	"context"
	"errors"
	"fmt"
	"slotbook/config"
	"slotbook/infras/otel"
	versionService "slotbook/internal/domains/dataversion/service"
	"slotbook/internal/domains/sync/model/dto"
	"slotbook/internal/store"
	"slotbook/shared"
	"slotbook/shared/cache"
	"slotbook/shared/constant"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	cacheSnapshot          = "sync:snapshot"
	defaultSnapshotTimeout = 15 * time.Second
)

type Sync interface {
	Sync(ctx context.Context, clientVersion int64, forceFull bool) (dto.SyncResponse, error)
}

type serviceImpl struct {
	store    store.Store
	versions versionService.DataVersion
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	builds   singleflight.Group
}

func New(store store.Store, versions versionService.DataVersion, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Sync {
	return &serviceImpl{
		store:    store,
		versions: versions,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
	}
}

// Sync tells a polling client whether it is behind and, if so, hands it a
// snapshot at least as new as the version read at the start of the call.
func (s *serviceImpl) Sync(ctx context.Context, clientVersion int64, forceFull bool) (res dto.SyncResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".sync.Sync")
	defer scope.End()

	if !s.cfg.Authoritative() {
		return dto.Local(), nil
	}

	current, err := s.versions.Current(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to read data version")

		return res, err //nolint:wrapcheck
	}

	scope.SetAttributes(map[string]any{
		"sync.client_version": clientVersion,
		"sync.server_version": current,
		"sync.force_full":     forceFull,
	})

	if !forceFull && clientVersion >= current {
		return dto.UpToDate(current), nil
	}

	snapshot, err := s.snapshot(ctx, current)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("version", current).Msg("failed to build snapshot")

		return res, err
	}

	return dto.Stale(snapshot), nil
}

// snapshot returns a snapshot whose version is at least minVersion.
// Concurrent callers for the same epoch and version share one build.
func (s *serviceImpl) snapshot(ctx context.Context, minVersion int64) (dto.CachedSnapshot, error) {
	epoch, err := s.store.Epoch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read data epoch, snapshot cache skipped")

		epoch = constant.Empty
	}

	if cached, ok := s.lookup(ctx, epoch, minVersion); ok {
		return cached, nil
	}

	results := s.builds.DoChan(shared.BuildCacheKey(epoch, minVersion), func() (any, error) {
		return s.build(ctx)
	})

	select {
	case <-ctx.Done():
		return dto.CachedSnapshot{}, fmt.Errorf("waiting for snapshot: %w", ctx.Err())
	case result := <-results:
		if result.Err != nil {
			return dto.CachedSnapshot{}, result.Err //nolint:wrapcheck
		}

		if result.Shared {
			log.Debug().Int64("version", minVersion).Msg("snapshot build shared between pollers")
		}

		return result.Val.(dto.CachedSnapshot), nil //nolint:forcetypeassert
	}
}

// build reads the store detached from the first caller, so its
// cancellation does not fail the pollers sharing the build. The timeout
// keeps a hung read from pinning them all.
func (s *serviceImpl) build(ctx context.Context) (dto.CachedSnapshot, error) {
	timeout := defaultSnapshotTimeout
	if s.cfg.Sync.SnapshotTimeoutSeconds > 0 {
		timeout = time.Duration(s.cfg.Sync.SnapshotTimeoutSeconds) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return dto.CachedSnapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	built := dto.CachedSnapshot{}
	built.FromSnapshot(snapshot)

	s.remember(ctx, built)

	return built, nil
}

func (s *serviceImpl) cacheKey(epoch string, version int64) string {
	return shared.BuildCacheKey(cacheSnapshot, s.cfg.Storage.Dataset, epoch, version)
}

func (s *serviceImpl) lookup(ctx context.Context, epoch string, minVersion int64) (dto.CachedSnapshot, bool) {
	var cached dto.CachedSnapshot

	if epoch == constant.Empty {
		return cached, false
	}

	cacheKey := s.cacheKey(epoch, minVersion)

	err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		if !errors.Is(err, cache.Nil) && !errors.Is(err, cache.ErrDisabled) {
			log.Warn().Err(err).Str("cacheKey", cacheKey).Msg("failed to read snapshot cache")
		}

		return cached, false
	}

	if cached.Epoch != epoch || cached.Version < minVersion {
		return cached, false
	}

	log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for snapshot")

	return cached, true
}

// remember stores a snapshot under its epoch and version. Within one epoch
// a version always maps to the same data, so the key never needs
// invalidating.
func (s *serviceImpl) remember(ctx context.Context, snapshot dto.CachedSnapshot) {
	if snapshot.Epoch == constant.Empty {
		return
	}

	cacheKey := s.cacheKey(snapshot.Epoch, snapshot.Version)

	err := s.cache.Save(ctx, cacheKey, snapshot, s.cfg.Sync.SnapshotCacheTTL)
	if err != nil && !errors.Is(err, cache.ErrDisabled) {
		log.Warn().Err(err).Str("cacheKey", cacheKey).Msg("failed to save snapshot to cache")
	}
}
