package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"slotbook/infras/otel/mocks"
	"slotbook/internal/domains/dataversion/service"
	"slotbook/internal/store"
	storeMocks "slotbook/internal/store/mocks"
)

func TestDataVersionService_Current(t *testing.T) {
	st := store.NewMemory(mocks.NewOtel())
	svc := service.New(st, mocks.NewOtel())

	previous := int64(-1)

	for range 3 {
		current, err := svc.Current(context.Background())
		require.NoError(t, err)
		assert.Greater(t, current, previous)
		previous = current

		err = st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.BumpVersion(ctx)

			return err
		})
		require.NoError(t, err)
	}
}

func TestDataVersionService_Current_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := storeMocks.NewMockStore(ctrl)
	mockStore.EXPECT().CurrentVersion(gomock.Any()).Return(int64(0), errors.New("database error"))

	_, err := service.New(mockStore, mocks.NewOtel()).Current(context.Background())
	assert.ErrorContains(t, err, "failed to read data version")
}
