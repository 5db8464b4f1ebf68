package repository

import (
	"context"
	"fmt"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	"slotbook/internal/domains/settings/model"
	"slotbook/shared/constant"
	gDto "slotbook/shared/dto"
	"slotbook/shared/logger"
	gRepo "slotbook/shared/repository"

	"github.com/jmoiron/sqlx"
)

const upsertQuery = `INSERT INTO settings (key, value, modified_at) VALUES (:key, :value, :modified_at)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, modified_at = EXCLUDED.modified_at`

type Settings interface {
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Setting, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Setting, error)
	UpsertTx(ctx context.Context, sqltx *sqlx.Tx, settings []model.Setting) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Setting]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Settings {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Setting](model.EntityName, model.TableName, model.FieldKey, db, otel),
		otel:       otel,
	}
}

func (r *repositoryImpl) UpsertTx(ctx context.Context, sqltx *sqlx.Tx, settings []model.Setting) error {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".setting.UpsertTx")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, upsertQuery)

	for _, setting := range settings {
		if _, err := sqltx.NamedExecContext(ctx, upsertQuery, setting); err != nil {
			logger.ErrorWithStack(err)
			scope.TraceError(err)

			return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
		}
	}

	return nil
}
