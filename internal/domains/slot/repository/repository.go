package repository

import (
	"context"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	"slotbook/internal/domains/slot/model"
	"slotbook/shared/constant"
	gDto "slotbook/shared/dto"
	gRepo "slotbook/shared/repository"
	"slotbook/shared/timezone"

	"github.com/jmoiron/sqlx"
)

type Slot interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.TimeSlot, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.TimeSlot, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.TimeSlot, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.TimeSlot, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	InsertBulkTx(ctx context.Context, sqltx *sqlx.Tx, models []model.TimeSlot) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, mod map[string]any, filter gDto.FilterGroup) (int64, error)
	DeleteTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) (int64, error)
	IncrementBookingsTx(ctx context.Context, sqltx *sqlx.Tx, id string, expected, delta int) (bool, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.TimeSlot]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Slot {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.TimeSlot](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

// IncrementBookingsTx moves current_bookings from expected to
// expected+delta. It reports false when the row no longer holds expected
// or the new total would exceed max_capacity.
func (r *repositoryImpl) IncrementBookingsTx(ctx context.Context, sqltx *sqlx.Tx, id string, expected, delta int) (bool, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot.IncrementBookingsTx")
	defer scope.End()

	next := expected + delta

	filter := gDto.And(
		gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq},
		gDto.Filter{ArgName: "expected_bookings", Field: model.FieldCurrentBookings, Value: expected, Operator: gDto.FilterOperatorEq},
		gDto.Filter{ArgName: "required_capacity", Field: model.FieldMaxCapacity, Value: next, Operator: gDto.FilterOperatorGreaterEq},
	)

	rows, err := r.UpdateTx(ctx, sqltx, map[string]any{
		model.FieldCurrentBookings: next,
		constant.FieldModifiedAt:   timezone.Now(),
		constant.FieldModifiedBy:   constant.CustomerActor,
	}, filter)
	if err != nil {
		scope.TraceError(err)

		return false, err
	}

	scope.SetAttribute("slot.swapped", rows == 1)

	return rows == 1, nil
}

// ToFilterGroup turns listing filters into a WHERE clause.
func ToFilterGroup(filter model.Filter) gDto.FilterGroup {
	group := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}

	if filter.SportID != "" {
		group.Add(gDto.Filter{Field: model.FieldSportID, Value: filter.SportID, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	if filter.Date != nil {
		group.Add(gDto.Filter{Field: model.FieldDate, Value: filter.Date.Format(constant.DayFormat), Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	return group
}
