package repository

import (
	"context"
	"errors"
	"fmt"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	"slotbook/internal/domains/dataversion/model"
	"slotbook/shared/constant"
	gDto "slotbook/shared/dto"
	"slotbook/shared/logger"
	gRepo "slotbook/shared/repository"
	"slotbook/shared/timezone"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const bumpQuery = `INSERT INTO data_versions (scope, version, epoch, modified_at) VALUES ($1, 1, $2, $3)
ON CONFLICT (scope) DO UPDATE SET version = data_versions.version + 1, modified_at = EXCLUDED.modified_at
RETURNING version`

type DataVersion interface {
	Current(ctx context.Context, scope string) (int64, error)
	Stamp(ctx context.Context, scope string) (model.DataVersion, error)
	StampTx(ctx context.Context, sqltx *sqlx.Tx, scope string) (model.DataVersion, error)
	BumpTx(ctx context.Context, sqltx *sqlx.Tx, scope string) (int64, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.DataVersion]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) DataVersion {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.DataVersion](model.EntityName, model.TableName, model.FieldScope, db, otel),
		otel:       otel,
	}
}

func byScope(scope string) gDto.FilterGroup {
	return gDto.And(gDto.Filter{Field: model.FieldScope, Value: scope, Operator: gDto.FilterOperatorEq})
}

func stampOf(scope string, row model.DataVersion, err error) (model.DataVersion, error) {
	if errors.Is(err, gRepo.ErrNotFound) {
		return model.DataVersion{Scope: scope}, nil
	}

	return row, err
}

func (r *repositoryImpl) Current(ctx context.Context, scope string) (int64, error) {
	row, err := r.Stamp(ctx, scope)

	return row.Version, err
}

// Stamp reads the scope's version together with its epoch.
func (r *repositoryImpl) Stamp(ctx context.Context, scope string) (model.DataVersion, error) {
	row, err := r.Get(ctx, byScope(scope))

	return stampOf(scope, row, err)
}

func (r *repositoryImpl) StampTx(ctx context.Context, sqltx *sqlx.Tx, scope string) (model.DataVersion, error) {
	row, err := r.GetTx(ctx, sqltx, byScope(scope))

	return stampOf(scope, row, err)
}

// BumpTx increments the scope's version inside sqltx and returns the new
// value. The first bump of a scope opens a new epoch. The row lock it
// takes serialises concurrent mutations of the same dataset until commit.
func (r *repositoryImpl) BumpTx(ctx context.Context, sqltx *sqlx.Tx, scope string) (int64, error) {
	ctx, otelScope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".data_version.BumpTx")
	defer otelScope.End()

	otelScope.SetAttribute(constant.OtelQueryAttributeKey, bumpQuery)

	var version int64
	if err := sqltx.QueryRowxContext(ctx, bumpQuery, scope, uuid.NewString(), timezone.Now()).Scan(&version); err != nil {
		logger.ErrorWithStack(err)
		otelScope.TraceError(err)

		return 0, fmt.Errorf("failed to bump data version: %w", err)
	}

	return version, nil
}
