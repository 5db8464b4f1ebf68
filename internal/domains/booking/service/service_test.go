package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"slotbook/config"
	"slotbook/infras/kafka"
	kafkaMocks "slotbook/infras/kafka/mocks"
	"slotbook/infras/otel/mocks"
	"slotbook/internal/domains/booking/model"
	"slotbook/internal/domains/booking/model/dto"
	"slotbook/internal/domains/booking/service"
	slotModel "slotbook/internal/domains/slot/model"
	"slotbook/internal/store"
	storeMocks "slotbook/internal/store/mocks"
	"slotbook/shared/failure"
)

func newConfig(mode string) *config.Config {
	cfg := &config.Config{}
	cfg.Storage.Mode = mode
	cfg.Storage.Dataset = "test"
	cfg.Reservation.MaxAttempts = 3
	cfg.Kafka.Topics.BookingAccepted = "booking.accepted"

	return cfg
}

func seed(t *testing.T, st store.Store, slots ...slotModel.TimeSlot) {
	t.Helper()

	err := st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertSlots(ctx, slots)
	})
	require.NoError(t, err)
}

func slot(id string, price int64, maxCapacity, current int) slotModel.TimeSlot {
	return slotModel.TimeSlot{
		ID:              id,
		SportID:         "padel",
		Date:            time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		StartTime:       "18:00",
		DurationMinutes: 60,
		Price:           price,
		MaxCapacity:     maxCapacity,
		CurrentBookings: current,
	}
}

func request(slotID string, people int) dto.ReserveRequest {
	return dto.ReserveRequest{
		SlotID:         slotID,
		CustomerName:   "Ana",
		CustomerEmail:  "ana@example.com",
		CustomerPhone:  "+34600000000",
		NumberOfPeople: people,
		SportName:      "Padel",
	}
}

func newMemoryService(t *testing.T) (service.Booking, store.Store) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := store.NewMemory(mocks.NewOtel())

	return service.New(st, kafkaMocks.NewMockClient(ctrl), newConfig(config.StorageModeMemory), mocks.NewOtel()), st
}

func TestBookingService_Reserve(t *testing.T) {
	tests := []struct {
		name          string
		slots         []slotModel.TimeSlot
		req           dto.ReserveRequest
		wantReason    model.Reason
		wantAvailable int
		wantCurrent   int
		wantTotal     int64
		wantCode      int
	}{
		{
			name:        "accepts and freezes the price",
			slots:       []slotModel.TimeSlot{slot("s1", 1500, 4, 0)},
			req:         request("s1", 3),
			wantCurrent: 3,
			wantTotal:   4500,
		},
		{
			name:        "fills the slot exactly",
			slots:       []slotModel.TimeSlot{slot("s1", 1000, 2, 1)},
			req:         request("s1", 1),
			wantCurrent: 2,
			wantTotal:   1000,
		},
		{
			name:       "unknown slot",
			req:        request("missing", 1),
			wantReason: model.ReasonSlotNotFound,
		},
		{
			name:          "not enough places",
			slots:         []slotModel.TimeSlot{slot("s1", 1000, 4, 3)},
			req:           request("s1", 2),
			wantReason:    model.ReasonNotEnoughPlaces,
			wantAvailable: 1,
		},
		{
			name:          "full slot reports zero places",
			slots:         []slotModel.TimeSlot{slot("s1", 1000, 2, 2)},
			req:           request("s1", 1),
			wantReason:    model.ReasonNotEnoughPlaces,
			wantAvailable: 0,
		},
		{
			name:     "zero people",
			slots:    []slotModel.TimeSlot{slot("s1", 1000, 2, 0)},
			req:      request("s1", 0),
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newMemoryService(t)
			if len(tt.slots) > 0 {
				seed(t, st, tt.slots...)
			}

			before, err := st.CurrentVersion(context.Background())
			require.NoError(t, err)

			res, err := svc.Reserve(context.Background(), tt.req)

			after, verr := st.CurrentVersion(context.Background())
			require.NoError(t, verr)

			switch {
			case tt.wantReason != "":
				var rejection *model.Rejection
				require.ErrorAs(t, err, &rejection)
				assert.Equal(t, tt.wantReason, rejection.Reason)
				assert.Equal(t, tt.wantAvailable, rejection.AvailablePlaces)
				assert.Equal(t, before, after)
			case tt.wantCode != 0:
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Equal(t, before, after)
			default:
				require.NoError(t, err)
				assert.True(t, res.Success)
				assert.Equal(t, tt.wantCurrent, res.UpdatedSlot.CurrentBookings)
				assert.Equal(t, tt.wantTotal, res.Booking.TotalPrice)
				assert.Equal(t, "padel", res.Booking.SportID)
				assert.Equal(t, before+1, after)
				assert.Equal(t, after, res.Version)

				stored, err := st.GetSlot(context.Background(), tt.req.SlotID)
				require.NoError(t, err)
				assert.Equal(t, tt.wantCurrent, stored.CurrentBookings)
			}
		})
	}
}

func TestBookingService_Reserve_SecondBookingOnNearlyFullSlot(t *testing.T) {
	svc, st := newMemoryService(t)
	seed(t, st, slot("S1", 1000, 2, 1))

	res, err := svc.Reserve(context.Background(), request("S1", 1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedSlot.CurrentBookings)

	_, err = svc.Reserve(context.Background(), request("S1", 1))

	var rejection *model.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, model.ReasonNotEnoughPlaces, rejection.Reason)
	assert.Equal(t, 0, rejection.AvailablePlaces)
}

func TestBookingService_Reserve_CapacityUnderConcurrency(t *testing.T) {
	const (
		capacity = 7
		callers  = 40
	)

	svc, st := newMemoryService(t)
	seed(t, st, slot("s1", 1000, capacity, 0))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		people   int
	)

	for i := range callers {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			size := 1 + n%2

			_, err := svc.Reserve(context.Background(), request("s1", size))
			if err != nil {
				var rejection *model.Rejection
				assert.ErrorAs(t, err, &rejection)

				return
			}

			mu.Lock()
			accepted++
			people += size
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	stored, err := st.GetSlot(context.Background(), "s1")
	require.NoError(t, err)
	assert.LessOrEqual(t, people, capacity)
	assert.Equal(t, people, stored.CurrentBookings)

	version, err := st.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(accepted), version)

	snapshot, err := st.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Bookings, accepted)
}

func TestBookingService_Reserve_NoDoubleSpend(t *testing.T) {
	for round := range 20 {
		t.Run(fmt.Sprintf("round %d", round), func(t *testing.T) {
			svc, st := newMemoryService(t)
			seed(t, st, slot("s1", 1000, 1, 0))

			results := make(chan error, 2)
			start := make(chan struct{})

			for range 2 {
				go func() {
					<-start

					_, err := svc.Reserve(context.Background(), request("s1", 1))
					results <- err
				}()
			}

			close(start)

			successes := 0

			for range 2 {
				err := <-results
				if err == nil {
					successes++

					continue
				}

				var rejection *model.Rejection
				require.ErrorAs(t, err, &rejection)
				assert.Contains(t, []model.Reason{model.ReasonNotEnoughPlaces, model.ReasonRaceCondition}, rejection.Reason)
			}

			assert.Equal(t, 1, successes)
		})
	}
}

func TestBookingService_Reserve_PriceFreeze(t *testing.T) {
	svc, st := newMemoryService(t)
	seed(t, st, slot("s1", 2000, 4, 0))

	res, err := svc.Reserve(context.Background(), request("s1", 2))
	require.NoError(t, err)
	require.Equal(t, int64(4000), res.Booking.TotalPrice)

	newPrice := int64(9900)
	err = st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.UpdateSlot(ctx, "s1", slotModel.Update{Price: &newPrice}, "admin")

		return err
	})
	require.NoError(t, err)

	booking, err := svc.Get(context.Background(), res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), booking.TotalPrice)
	assert.Equal(t, int64(2000), booking.UnitPrice)
}

func TestBookingService_Reserve_IdempotentReplay(t *testing.T) {
	svc, st := newMemoryService(t)
	seed(t, st, slot("s1", 1000, 5, 0))

	req := request("s1", 2)
	req.IdempotencyKey = "retry-1"

	first, err := svc.Reserve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	version, err := st.CurrentVersion(context.Background())
	require.NoError(t, err)

	second, err := svc.Reserve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, 2, second.UpdatedSlot.CurrentBookings)

	after, err := st.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, version, after)

	stored, err := st.GetSlot(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentBookings)
}

func TestBookingService_Reserve_LocalMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := storeMocks.NewMockStore(ctrl)

	svc := service.New(mockStore, kafkaMocks.NewMockClient(ctrl), newConfig(config.StorageModeLocal), mocks.NewOtel())

	_, err := svc.Reserve(context.Background(), request("s1", 1))
	assert.ErrorIs(t, err, failure.LocalModeError)
}

func TestBookingService_Reserve_RetriesExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := storeMocks.NewMockStore(ctrl)
	mockTx := storeMocks.NewMockTx(ctrl)

	cfg := newConfig(config.StorageModePostgres)
	svc := service.New(mockStore, kafkaMocks.NewMockClient(ctrl), cfg, mocks.NewOtel())

	mockStore.EXPECT().
		Atomic(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, store.Tx) error) error {
			return fn(ctx, mockTx)
		}).
		Times(cfg.Reservation.MaxAttempts)

	mockTx.EXPECT().GetSlot(gomock.Any(), "s1").Return(slot("s1", 1000, 5, 1), nil).Times(cfg.Reservation.MaxAttempts)
	mockTx.EXPECT().IncrementBookings(gomock.Any(), "s1", 1, 1).Return(false, nil).Times(cfg.Reservation.MaxAttempts)

	_, err := svc.Reserve(context.Background(), request("s1", 1))

	var rejection *model.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, model.ReasonRaceCondition, rejection.Reason)
}

func TestBookingService_Reserve_RetrySucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := storeMocks.NewMockStore(ctrl)
	mockTx := storeMocks.NewMockTx(ctrl)

	svc := service.New(mockStore, kafkaMocks.NewMockClient(ctrl), newConfig(config.StorageModePostgres), mocks.NewOtel())

	mockStore.EXPECT().
		Atomic(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, store.Tx) error) error {
			return fn(ctx, mockTx)
		}).
		Times(2)

	gomock.InOrder(
		mockTx.EXPECT().GetSlot(gomock.Any(), "s1").Return(slot("s1", 1000, 5, 1), nil),
		mockTx.EXPECT().IncrementBookings(gomock.Any(), "s1", 1, 2).Return(false, nil),
		mockTx.EXPECT().GetSlot(gomock.Any(), "s1").Return(slot("s1", 1000, 5, 2), nil),
		mockTx.EXPECT().IncrementBookings(gomock.Any(), "s1", 2, 2).Return(true, nil),
		mockTx.EXPECT().CreateBooking(gomock.Any(), gomock.Any()).Return(nil),
		mockTx.EXPECT().BumpVersion(gomock.Any()).Return(int64(8), nil),
	)

	res, err := svc.Reserve(context.Background(), request("s1", 2))
	require.NoError(t, err)
	assert.Equal(t, 4, res.UpdatedSlot.CurrentBookings)
	assert.Equal(t, int64(8), res.Version)
}

func TestBookingService_Reserve_StorageFault(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := storeMocks.NewMockStore(ctrl)

	svc := service.New(mockStore, kafkaMocks.NewMockClient(ctrl), newConfig(config.StorageModePostgres), mocks.NewOtel())

	fault := errors.New("connection reset by peer")
	mockStore.EXPECT().Atomic(gomock.Any(), gomock.Any()).Return(fault).Times(1)

	_, err := svc.Reserve(context.Background(), request("s1", 1))
	require.ErrorIs(t, err, fault)

	var rejection *model.Rejection
	assert.False(t, errors.As(err, &rejection))
	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
}

func TestBookingService_Reserve_PublishesAcceptedEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockKafka := kafkaMocks.NewMockClient(ctrl)
	st := store.NewMemory(mocks.NewOtel())

	cfg := newConfig(config.StorageModeMemory)
	cfg.Kafka.Enable = true

	svc := service.New(st, mockKafka, cfg, mocks.NewOtel())
	seed(t, st, slot("s1", 1000, 5, 0))

	published := make(chan kafka.Message, 1)
	mockKafka.EXPECT().
		SendMessages(gomock.Any(), "booking.accepted", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
			published <- messages[0]

			return nil
		})

	res, err := svc.Reserve(context.Background(), request("s1", 2))
	require.NoError(t, err)

	select {
	case msg := <-published:
		assert.Equal(t, "s1", msg.Key)

		event, ok := msg.Value.(model.AcceptedEvent)
		require.True(t, ok)
		assert.Equal(t, res.Booking.ID, event.BookingID)
		assert.Equal(t, int64(2000), event.TotalPrice)
	case <-time.After(2 * time.Second):
		t.Fatal("booking accepted event was not published")
	}
}

func TestBookingService_Get(t *testing.T) {
	svc, st := newMemoryService(t)
	seed(t, st, slot("s1", 1000, 5, 0))

	res, err := svc.Reserve(context.Background(), request("s1", 1))
	require.NoError(t, err)

	tests := []struct {
		name     string
		id       string
		wantCode int
	}{
		{name: "existing booking", id: res.Booking.ID},
		{name: "unknown booking", id: "nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking, err := svc.Get(context.Background(), tt.id)
			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "s1", booking.SlotID)
		})
	}
}
