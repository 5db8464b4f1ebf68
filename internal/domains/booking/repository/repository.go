package repository

import (
	"context"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	"slotbook/internal/domains/booking/model"
	gDto "slotbook/shared/dto"
	gRepo "slotbook/shared/repository"

	"github.com/jmoiron/sqlx"
)

type Booking interface {
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Booking) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

func ByIdempotencyKey(key string) gDto.FilterGroup {
	return gDto.And(gDto.Filter{Field: model.FieldIdempotencyKey, Value: key, Operator: gDto.FilterOperatorEq})
}
