package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"slotbook/config"
	"slotbook/infras/otel/mocks"
	versionMocks "slotbook/internal/domains/dataversion/mocks"
	versionService "slotbook/internal/domains/dataversion/service"
	settingsModel "slotbook/internal/domains/settings/model"
	slotModel "slotbook/internal/domains/slot/model"
	"slotbook/internal/domains/sync/model/dto"
	"slotbook/internal/domains/sync/service"
	"slotbook/internal/store"
	storeMocks "slotbook/internal/store/mocks"
	"slotbook/shared/cache"
	cacheMocks "slotbook/shared/cache/mocks"
)

func newConfig(mode string) *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Mode = mode
	cfg.Storage.Dataset = "test"
	cfg.Sync.SnapshotCacheTTL = 300

	return cfg
}

func snapshotAt(version int64) store.Snapshot {
	return store.Snapshot{
		Epoch:   "e1",
		Version: version,
		Slots: []slotModel.TimeSlot{{
			ID:          "s1",
			SportID:     "padel",
			Date:        time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
			StartTime:   "10:00",
			Price:       1200,
			MaxCapacity: 4,
		}},
		Settings: []settingsModel.Setting{{Key: "title", Value: "Club"}},
	}
}

func TestSyncService_Sync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := storeMocks.NewMockStore(ctrl)
	mockVersions := versionMocks.NewMockDataVersion(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	svc := service.New(mockStore, mockVersions, newConfig(config.StorageModePostgres), mockCache, mocks.NewOtel())

	tests := []struct {
		name          string
		clientVersion int64
		forceFull     bool
		setupMock     func()
		wantErr       bool
		wantNeedsSync bool
		wantVersion   int64
	}{
		{
			name:          "client is current",
			clientVersion: 5,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(5), nil)
			},
			wantVersion: 5,
		},
		{
			name:          "client is ahead",
			clientVersion: 9,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(5), nil)
			},
			wantVersion: 5,
		},
		{
			name:          "stale client on cache miss",
			clientVersion: 5,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(6), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("e1", nil)
				mockCache.EXPECT().Get(gomock.Any(), "sync:snapshot:test:e1:6", gomock.Any()).Return(cache.Nil)
				mockStore.EXPECT().Snapshot(gomock.Any()).Return(snapshotAt(6), nil)
				mockCache.EXPECT().Save(gomock.Any(), "sync:snapshot:test:e1:6", gomock.Any(), 300).Return(nil)
			},
			wantNeedsSync: true,
			wantVersion:   6,
		},
		{
			name:          "snapshot read past the polled version",
			clientVersion: 0,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(6), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("e1", nil)
				mockCache.EXPECT().Get(gomock.Any(), "sync:snapshot:test:e1:6", gomock.Any()).Return(cache.Nil)
				mockStore.EXPECT().Snapshot(gomock.Any()).Return(snapshotAt(7), nil)
				mockCache.EXPECT().Save(gomock.Any(), "sync:snapshot:test:e1:7", gomock.Any(), 300).Return(nil)
			},
			wantNeedsSync: true,
			wantVersion:   7,
		},
		{
			name:          "stale client on cache hit",
			clientVersion: 1,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(6), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("e1", nil)
				mockCache.EXPECT().Get(gomock.Any(), "sync:snapshot:test:e1:6", gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, value any) error {
						cached, ok := value.(*dto.CachedSnapshot)
						require.True(t, ok)
						cached.FromSnapshot(snapshotAt(6))

						return nil
					})
			},
			wantNeedsSync: true,
			wantVersion:   6,
		},
		{
			name:          "forced full snapshot",
			clientVersion: 6,
			forceFull:     true,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(6), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("e1", nil)
				mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.ErrDisabled)
				mockStore.EXPECT().Snapshot(gomock.Any()).Return(snapshotAt(6), nil)
				mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.ErrDisabled)
			},
			wantNeedsSync: true,
			wantVersion:   6,
		},
		{
			name:          "cache outage only costs a rebuild",
			clientVersion: 2,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(3), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("e1", nil)
				mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("i/o timeout"))
				mockStore.EXPECT().Snapshot(gomock.Any()).Return(snapshotAt(3), nil)
				mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("i/o timeout"))
			},
			wantNeedsSync: true,
			wantVersion:   3,
		},
		{
			name:          "snapshot read fails",
			clientVersion: 2,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(3), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("e1", nil)
				mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil)
				mockStore.EXPECT().Snapshot(gomock.Any()).Return(store.Snapshot{}, errors.New("database error"))
			},
			wantErr: true,
		},
		{
			name:          "unknown epoch bypasses the cache",
			clientVersion: 0,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(2), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("", nil)

				unstamped := snapshotAt(2)
				unstamped.Epoch = ""
				mockStore.EXPECT().Snapshot(gomock.Any()).Return(unstamped, nil)
			},
			wantNeedsSync: true,
			wantVersion:   2,
		},
		{
			name:          "epoch read fails",
			clientVersion: 0,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(2), nil)
				mockStore.EXPECT().Epoch(gomock.Any()).Return("", errors.New("database error"))
				mockStore.EXPECT().Snapshot(gomock.Any()).Return(snapshotAt(2), nil)
				mockCache.EXPECT().Save(gomock.Any(), "sync:snapshot:test:e1:2", gomock.Any(), 300).Return(nil)
			},
			wantNeedsSync: true,
			wantVersion:   2,
		},
		{
			name:          "version read fails",
			clientVersion: 2,
			setupMock: func() {
				mockVersions.EXPECT().Current(gomock.Any()).Return(int64(0), errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := svc.Sync(context.Background(), tt.clientVersion, tt.forceFull)

			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, dto.ModeAuthoritative, res.Mode)
			assert.Equal(t, tt.wantNeedsSync, res.NeedsSync)
			assert.Equal(t, tt.wantVersion, res.Version)

			if tt.wantNeedsSync {
				require.NotNil(t, res.Data)
				assert.Len(t, res.Data.Slots, 1)
				assert.Equal(t, "Club", res.Data.Settings["title"])
				assert.NotNil(t, res.Data.Bookings)
			} else {
				assert.Nil(t, res.Data)
			}
		})
	}
}

func TestSyncService_Sync_LocalMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := service.New(
		storeMocks.NewMockStore(ctrl),
		versionMocks.NewMockDataVersion(ctrl),
		newConfig(config.StorageModeLocal),
		cacheMocks.NewMockRedisCache(ctrl),
		mocks.NewOtel(),
	)

	for _, version := range []int64{0, 5} {
		res, err := svc.Sync(context.Background(), version, true)
		require.NoError(t, err)
		assert.Equal(t, dto.Local(), res)
		assert.Equal(t, "local", res.Mode)
		assert.False(t, res.NeedsSync)
		assert.Zero(t, res.Version)
	}
}

// Polls before and after a booking lands, against the embedded store.
func TestSyncService_Sync_PollAcrossMutation(t *testing.T) {
	st := store.NewMemory(mocks.NewOtel())
	versions := versionService.New(st, mocks.NewOtel())
	svc := service.New(st, versions, newConfig(config.StorageModeMemory), cache.NewRedisCache(nil, mocks.NewOtel()), mocks.NewOtel())

	bump := func() {
		err := st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.BumpVersion(ctx)

			return err
		})
		require.NoError(t, err)
	}

	for range 5 {
		bump()
	}

	res, err := svc.Sync(context.Background(), 5, false)
	require.NoError(t, err)
	assert.False(t, res.NeedsSync)
	assert.Equal(t, int64(5), res.Version)

	again, err := svc.Sync(context.Background(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	bump()

	res, err = svc.Sync(context.Background(), 5, false)
	require.NoError(t, err)
	assert.True(t, res.NeedsSync)
	assert.Equal(t, int64(6), res.Version)
	require.NotNil(t, res.Data)

	again, err = svc.Sync(context.Background(), 5, false)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestSyncService_Sync_ConcurrentStalePollers(t *testing.T) {
	st := store.NewMemory(mocks.NewOtel())
	versions := versionService.New(st, mocks.NewOtel())
	svc := service.New(st, versions, newConfig(config.StorageModeMemory), cache.NewRedisCache(nil, mocks.NewOtel()), mocks.NewOtel())

	err := st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertSlots(ctx, []slotModel.TimeSlot{{ID: "s1", MaxCapacity: 2}}); err != nil {
			return err
		}

		_, err := tx.BumpVersion(ctx)

		return err
	})
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res, err := svc.Sync(context.Background(), 0, false)
			assert.NoError(t, err)
			assert.True(t, res.NeedsSync)
			assert.Equal(t, int64(1), res.Version)
		}()
	}

	wg.Wait()
}

// sharedCache backs a mock cache with one map, standing in for a Redis
// that outlives the processes using it.
func sharedCache(ctrl *gomock.Controller) *cacheMocks.MockRedisCache {
	var mu sync.Mutex

	entries := map[string][]byte{}
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, key string, value any, _ int) error {
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			entries[key] = raw

			return nil
		})
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, key string, value any) error {
			mu.Lock()
			raw, ok := entries[key]
			mu.Unlock()

			if !ok {
				return cache.Nil
			}

			return json.Unmarshal(raw, value)
		})

	return mockCache
}

// A restarted memory store reuses version numbers; its snapshots must not
// be answered from the previous run's cache entries.
func TestSyncService_Sync_AfterRestart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	redisCache := sharedCache(ctrl)

	syncAfterCreate := func(slotID string) dto.SyncResponse {
		st := store.NewMemory(mocks.NewOtel())
		svc := service.New(st, versionService.New(st, mocks.NewOtel()), newConfig(config.StorageModeMemory), redisCache, mocks.NewOtel())

		err := st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
			if err := tx.InsertSlots(ctx, []slotModel.TimeSlot{{ID: slotID, MaxCapacity: 2}}); err != nil {
				return err
			}

			_, err := tx.BumpVersion(ctx)

			return err
		})
		require.NoError(t, err)

		res, err := svc.Sync(context.Background(), 0, false)
		require.NoError(t, err)
		require.True(t, res.NeedsSync)
		require.NotNil(t, res.Data)

		// same process, same answer, now from the cache
		again, err := svc.Sync(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, res, again)

		return res
	}

	before := syncAfterCreate("slot-before-restart")
	after := syncAfterCreate("slot-after-restart")

	assert.Equal(t, before.Version, after.Version)
	require.Len(t, after.Data.Slots, 1)
	assert.Equal(t, "slot-after-restart", after.Data.Slots[0].ID)
}

func TestSyncService_Sync_CallerGivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := storeMocks.NewMockStore(ctrl)
	mockVersions := versionMocks.NewMockDataVersion(ctrl)
	svc := service.New(mockStore, mockVersions, newConfig(config.StorageModePostgres), cacheMocks.NewMockRedisCache(ctrl), mocks.NewOtel())

	release := make(chan struct{})
	finished := make(chan struct{})

	mockVersions.EXPECT().Current(gomock.Any()).Return(int64(4), nil)
	mockStore.EXPECT().Epoch(gomock.Any()).Return("", nil)
	mockStore.EXPECT().Snapshot(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (store.Snapshot, error) {
			defer close(finished)

			_, bounded := ctx.Deadline()
			assert.True(t, bounded, "snapshot build must carry a deadline")

			<-release

			return store.Snapshot{Version: 4}, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)

	go func() {
		_, err := svc.Sync(ctx, 0, false)
		errs <- err
	}()

	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sync kept waiting on a snapshot after its caller left")
	}

	close(release)
	<-finished
}
