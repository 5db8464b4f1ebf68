package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"slotbook/infras/otel"
	"slotbook/internal/store"
	"slotbook/shared/constant"
)

// DataVersion reads the dataset's change counter. Increments only happen
// through store.Tx.BumpVersion, inside the mutation they tag.
type DataVersion interface {
	Current(ctx context.Context) (int64, error)
}

type serviceImpl struct {
	store store.Store
	otel  otel.Otel
}

func New(store store.Store, otel otel.Otel) DataVersion {
	return &serviceImpl{
		store: store,
		otel:  otel,
	}
}

func (s *serviceImpl) Current(ctx context.Context) (int64, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".data_version.Current")
	defer scope.End()

	version, err := s.store.CurrentVersion(ctx)
	if err != nil {
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to read data version: %w", err)
	}

	scope.SetAttribute("data_version", version)

	return version, nil
}
