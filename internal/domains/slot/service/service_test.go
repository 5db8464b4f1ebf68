package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"slotbook/config"
	"slotbook/infras/otel/mocks"
	versionService "slotbook/internal/domains/dataversion/service"
	"slotbook/internal/domains/slot/model"
	"slotbook/internal/domains/slot/model/dto"
	"slotbook/internal/domains/slot/service"
	"slotbook/internal/store"
	storeMocks "slotbook/internal/store/mocks"
	"slotbook/shared/cache"
	cacheMocks "slotbook/shared/cache/mocks"
	gDto "slotbook/shared/dto"
	"slotbook/shared/failure"
)

func newConfig(mode string) *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Mode = mode
	cfg.Storage.Dataset = "test"
	cfg.Cache.TTL = 60

	return cfg
}

func newService(t *testing.T, mode string) (service.Slot, store.Store) {
	t.Helper()

	st := store.NewMemory(mocks.NewOtel())
	versions := versionService.New(st, mocks.NewOtel())

	return service.New(st, versions, newConfig(mode), cache.NewRedisCache(nil, mocks.NewOtel()), mocks.NewOtel()), st
}

func createRequest(id, date, start string, maxCapacity int) dto.CreateSlotRequest {
	return dto.CreateSlotRequest{
		ID:              id,
		SportID:         "padel",
		Date:            date,
		StartTime:       start,
		DurationMinutes: 90,
		Price:           2400,
		MaxCapacity:     maxCapacity,
	}
}

func version(t *testing.T, st store.Store) int64 {
	t.Helper()

	v, err := st.CurrentVersion(context.Background())
	require.NoError(t, err)

	return v
}

func book(t *testing.T, st store.Store, id string, people int) {
	t.Helper()

	err := st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		slot, err := tx.GetSlot(ctx, id)
		if err != nil {
			return err
		}

		_, err = tx.IncrementBookings(ctx, id, slot.CurrentBookings, people)

		return err
	})
	require.NoError(t, err)
}

func TestSlotService_Create(t *testing.T) {
	tests := []struct {
		name        string
		req         dto.CreateSlotsRequest
		mode        string
		wantCode    int
		wantVersion int64
	}{
		{
			name: "creates a batch with one bump",
			req: dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
				createRequest("a", "2026-10-20", "9:00", 4),
				createRequest("", "2026-10-20", "10:30", 4),
			}},
			mode:        config.StorageModeMemory,
			wantVersion: 1,
		},
		{
			name: "duplicate id in the batch",
			req: dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
				createRequest("a", "2026-10-20", "09:00", 4),
				createRequest("a", "2026-10-21", "09:00", 4),
			}},
			mode:     config.StorageModeMemory,
			wantCode: http.StatusConflict,
		},
		{
			name: "bad date",
			req: dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
				createRequest("a", "20/10/2026", "09:00", 4),
			}},
			mode:     config.StorageModeMemory,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "local mode",
			req: dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
				createRequest("a", "2026-10-20", "09:00", 4),
			}},
			mode:     config.StorageModeLocal,
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newService(t, tt.mode)

			res, err := svc.Create(context.Background(), tt.req)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Zero(t, version(t, st))

				return
			}

			require.NoError(t, err)
			require.Len(t, res, len(tt.req.Slots))
			assert.Equal(t, "09:00", res[0].StartTime)
			assert.NotEmpty(t, res[1].ID)
			assert.Equal(t, 4, res[1].AvailablePlaces)
			assert.Equal(t, tt.wantVersion, version(t, st))
		})
	}
}

func TestSlotService_Update(t *testing.T) {
	price := int64(3000)
	two, one := 2, 1
	start := "19:15"

	tests := []struct {
		name     string
		id       string
		req      dto.UpdateSlotRequest
		wantCode int
		check    func(t *testing.T, res dto.SlotResponse)
	}{
		{
			name: "price and start time",
			id:   "a",
			req:  dto.UpdateSlotRequest{Price: &price, StartTime: &start},
			check: func(t *testing.T, res dto.SlotResponse) {
				assert.Equal(t, int64(3000), res.Price)
				assert.Equal(t, "19:15", res.StartTime)
				assert.Equal(t, 2, res.CurrentBookings)
			},
		},
		{
			name: "capacity down to bookings",
			id:   "a",
			req:  dto.UpdateSlotRequest{MaxCapacity: &two},
			check: func(t *testing.T, res dto.SlotResponse) {
				assert.Equal(t, 0, res.AvailablePlaces)
			},
		},
		{
			name:     "capacity below bookings",
			id:       "a",
			req:      dto.UpdateSlotRequest{MaxCapacity: &one},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown slot",
			id:       "nope",
			req:      dto.UpdateSlotRequest{Price: &price},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newService(t, config.StorageModeMemory)

			_, err := svc.Create(context.Background(), dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
				createRequest("a", "2026-10-20", "09:00", 4),
			}})
			require.NoError(t, err)
			book(t, st, "a", 2)

			before := version(t, st)

			res, err := svc.Update(context.Background(), tt.req, tt.id)

			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Equal(t, before, version(t, st))

				return
			}

			require.NoError(t, err)
			tt.check(t, res)
			assert.Equal(t, before+1, version(t, st))

			stored, err := svc.Get(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, res, stored)
		})
	}
}

func TestSlotService_Delete(t *testing.T) {
	svc, st := newService(t, config.StorageModeMemory)

	_, err := svc.Create(context.Background(), dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
		createRequest("empty", "2026-10-20", "09:00", 4),
		createRequest("booked", "2026-10-20", "10:00", 4),
	}})
	require.NoError(t, err)
	book(t, st, "booked", 1)

	tests := []struct {
		name        string
		id          string
		wantCode    int
		wantVersion int64
	}{
		{name: "slot with bookings", id: "booked", wantCode: http.StatusConflict, wantVersion: 1},
		{name: "unknown slot", id: "nope", wantCode: http.StatusNotFound, wantVersion: 1},
		{name: "empty slot", id: "empty", wantVersion: 2},
		{name: "already deleted", id: "empty", wantCode: http.StatusNotFound, wantVersion: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Delete(context.Background(), tt.id)

			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantVersion, version(t, st))
		})
	}
}

func TestSlotService_GetAll(t *testing.T) {
	svc, _ := newService(t, config.StorageModeMemory)

	_, err := svc.Create(context.Background(), dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
		createRequest("a", "2026-10-20", "09:00", 4),
		createRequest("b", "2026-10-20", "10:00", 4),
		createRequest("c", "2026-10-21", "09:00", 4),
	}})
	require.NoError(t, err)

	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	res, err := svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 1}, model.Filter{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, 2, res.TotalPage)
	require.Len(t, res.Slots, 1)
	assert.Equal(t, "a", res.Slots[0].ID)
	assert.Equal(t, "2026-10-20", res.Slots[0].Date)
}

func TestSlotService_GetAll_CacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := store.NewMemory(mocks.NewOtel())
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	svc := service.New(st, versionService.New(st, mocks.NewOtel()), newConfig(config.StorageModeMemory), mockCache, mocks.NewOtel())

	epoch, err := st.Epoch(context.Background())
	require.NoError(t, err)

	mockCache.EXPECT().
		Get(gomock.Any(), "slot:gets:test:"+epoch+":0:1:10:::padel:", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value any) error {
			res, ok := value.(*dto.GetSlotsResponse)
			require.True(t, ok)
			res.TotalData = 42

			return nil
		})

	res, err := svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 10}, model.Filter{SportID: "padel"})
	require.NoError(t, err)
	assert.Equal(t, 42, res.TotalData)
}

func TestSlotService_Get(t *testing.T) {
	svc, _ := newService(t, config.StorageModeLocal)

	_, err := svc.Get(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))

	assert.ErrorIs(t, svc.Delete(context.Background(), "missing"), failure.LocalModeError)
}

// sharedCache backs a mock cache with one map, standing in for a Redis
// that outlives the processes using it.
func sharedCache(ctrl *gomock.Controller) (*cacheMocks.MockRedisCache, func() int) {
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

	return mockCache, func() int {
		mu.Lock()
		defer mu.Unlock()

		return len(entries)
	}
}

func TestSlotService_GetAll_AfterRestart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	redisCache, saved := sharedCache(ctrl)

	// Each run is a fresh process: its memory store restarts at version 0.
	listAfterCreate := func(slotID string, wantSaved int) dto.GetSlotsResponse {
		st := store.NewMemory(mocks.NewOtel())
		svc := service.New(st, versionService.New(st, mocks.NewOtel()), newConfig(config.StorageModeMemory), redisCache, mocks.NewOtel())

		_, err := svc.Create(context.Background(), dto.CreateSlotsRequest{Slots: []dto.CreateSlotRequest{
			createRequest(slotID, "2026-10-20", "09:00", 4),
		}})
		require.NoError(t, err)
		require.Equal(t, int64(1), version(t, st))

		res, err := svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 10}, model.Filter{})
		require.NoError(t, err)

		assert.Eventually(t, func() bool { return saved() == wantSaved }, time.Second, 5*time.Millisecond)

		return res
	}

	before := listAfterCreate("slot-before-restart", 1)
	require.Len(t, before.Slots, 1)

	after := listAfterCreate("slot-after-restart", 2)
	require.Len(t, after.Slots, 1)
	assert.Equal(t, "slot-after-restart", after.Slots[0].ID)
}

func TestSlotService_Update_ReturnsStoredRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := storeMocks.NewMockStore(ctrl)
	mockTx := storeMocks.NewMockTx(ctrl)
	svc := service.New(mockStore, nil, newConfig(config.StorageModePostgres), cache.NewRedisCache(nil, mocks.NewOtel()), mocks.NewOtel())

	price := int64(3000)
	read := model.TimeSlot{ID: "a", SportID: "padel", StartTime: "09:00", Price: 2400, MaxCapacity: 4, CurrentBookings: 1}
	stored := read
	stored.Price = price
	stored.CurrentBookings = 3

	mockStore.EXPECT().Atomic(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, store.Tx) error) error {
			return fn(ctx, mockTx)
		})
	gomock.InOrder(
		mockTx.EXPECT().GetSlot(gomock.Any(), "a").Return(read, nil),
		mockTx.EXPECT().UpdateSlot(gomock.Any(), "a", gomock.Any(), gomock.Any()).Return(true, nil),
		mockTx.EXPECT().GetSlot(gomock.Any(), "a").Return(stored, nil),
		mockTx.EXPECT().BumpVersion(gomock.Any()).Return(int64(8), nil),
	)

	res, err := svc.Update(context.Background(), dto.UpdateSlotRequest{Price: &price}, "a")
	require.NoError(t, err)
	assert.Equal(t, price, res.Price)
	assert.Equal(t, 3, res.CurrentBookings)
	assert.Equal(t, 1, res.AvailablePlaces)
}
