package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slotbook/infras/otel"
	"slotbook/infras/postgres"
	bookingModel "slotbook/internal/domains/booking/model"
	bookingRepo "slotbook/internal/domains/booking/repository"
	versionRepo "slotbook/internal/domains/dataversion/repository"
	settingsModel "slotbook/internal/domains/settings/model"
	settingsRepo "slotbook/internal/domains/settings/repository"
	slotModel "slotbook/internal/domains/slot/model"
	slotRepo "slotbook/internal/domains/slot/repository"
	"slotbook/shared"
	"slotbook/shared/constant"
	gDto "slotbook/shared/dto"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type postgresStore struct {
	db       *postgres.Connection
	otel     otel.Otel
	dataset  string
	slots    slotRepo.Slot
	bookings bookingRepo.Booking
	settings settingsRepo.Settings
	versions versionRepo.DataVersion
}

// NewPostgres returns a store backed by the shared database. Capacity
// changes are row level compare-and-swaps, so any number of processes may
// share it.
func NewPostgres(
	db *postgres.Connection,
	dataset string,
	slots slotRepo.Slot,
	bookings bookingRepo.Booking,
	settings settingsRepo.Settings,
	versions versionRepo.DataVersion,
	otel otel.Otel,
) Store {
	return &postgresStore{
		db:       db,
		otel:     otel,
		dataset:  dataset,
		slots:    slots,
		bookings: bookings,
		settings: settings,
		versions: versions,
	}
}

func byID(id string) gDto.FilterGroup {
	return shared.FilterByID(id, "id", "")
}

func (s *postgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelStoreScopeName, constant.OtelStoreScopeName+".postgres.Atomic")
	defer scope.End()

	sqltx, err := s.db.Write.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		scope.TraceError(err)

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqltx.Rollback()

			panic(p)
		}
	}()

	if err = fn(ctx, &postgresTx{store: s, tx: sqltx}); err != nil {
		if rbErr := sqltx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Msg("failed to roll back transaction")
		}

		return err
	}

	if err = sqltx.Commit(); err != nil {
		scope.TraceError(err)

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *postgresStore) CurrentVersion(ctx context.Context) (int64, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelStoreScopeName, constant.OtelStoreScopeName+".postgres.CurrentVersion")
	defer scope.End()

	version, err := s.versions.Current(ctx, s.dataset)
	if err != nil {
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to read data version: %w", err)
	}

	return version, nil
}

func (s *postgresStore) Epoch(ctx context.Context) (string, error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelStoreScopeName, constant.OtelStoreScopeName+".postgres.Epoch")
	defer scope.End()

	stamp, err := s.versions.Stamp(ctx, s.dataset)
	if err != nil {
		scope.TraceError(err)

		return "", fmt.Errorf("failed to read data epoch: %w", err)
	}

	return stamp.Epoch, nil
}

// Snapshot reads every table and the version in one read-only repeatable
// read transaction, so all parts agree with the version they carry.
func (s *postgresStore) Snapshot(ctx context.Context) (snap Snapshot, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelStoreScopeName, constant.OtelStoreScopeName+".postgres.Snapshot")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	sqltx, err := s.db.Read.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return snap, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer sqltx.Rollback() //nolint:errcheck

	stamp, err := s.versions.StampTx(ctx, sqltx, s.dataset)
	if err != nil {
		return snap, fmt.Errorf("failed to read snapshot version: %w", err)
	}

	snap.Epoch, snap.Version = stamp.Epoch, stamp.Version

	slotOrder := gDto.QueryParams{SortBy: slotModel.FieldDate, SortDir: gDto.SortDirAsc}
	if snap.Slots, err = s.slots.GetAllTx(ctx, sqltx, slotOrder, gDto.FilterGroup{}); err != nil {
		return snap, fmt.Errorf("failed to read snapshot slots: %w", err)
	}

	bookingOrder := gDto.QueryParams{SortBy: bookingModel.FieldCreatedAt, SortDir: gDto.SortDirAsc}
	if snap.Bookings, err = s.bookings.GetAllTx(ctx, sqltx, bookingOrder, gDto.FilterGroup{}); err != nil {
		return snap, fmt.Errorf("failed to read snapshot bookings: %w", err)
	}

	if snap.Settings, err = s.settings.GetAllTx(ctx, sqltx, gDto.QueryParams{}, gDto.FilterGroup{}); err != nil {
		return snap, fmt.Errorf("failed to read snapshot settings: %w", err)
	}

	if err = sqltx.Commit(); err != nil {
		return snap, fmt.Errorf("failed to close snapshot transaction: %w", err)
	}

	scope.SetAttribute("snapshot.version", snap.Version)

	return snap, nil
}

func (s *postgresStore) GetSlot(ctx context.Context, id string) (slotModel.TimeSlot, error) {
	return s.slots.Get(ctx, byID(id))
}

func (s *postgresStore) ListSlots(ctx context.Context, params gDto.QueryParams, filter slotModel.Filter) ([]slotModel.TimeSlot, int, error) {
	group := slotRepo.ToFilterGroup(filter)

	total, err := s.slots.Count(ctx, group)
	if err != nil {
		return nil, 0, err
	}

	if params.SortBy == "" {
		params.SortBy, params.SortDir = slotModel.FieldDate, gDto.SortDirAsc
	}

	slots, err := s.slots.GetAll(ctx, params, group)
	if err != nil {
		return nil, 0, err
	}

	return slots, total, nil
}

func (s *postgresStore) GetBooking(ctx context.Context, id string) (bookingModel.Booking, error) {
	return s.bookings.Get(ctx, byID(id))
}

func (s *postgresStore) GetSettings(ctx context.Context) ([]settingsModel.Setting, error) {
	return s.settings.GetAll(ctx, gDto.QueryParams{}, gDto.FilterGroup{})
}

type postgresTx struct {
	store *postgresStore
	tx    *sqlx.Tx
}

func (t *postgresTx) GetSlot(ctx context.Context, id string) (slotModel.TimeSlot, error) {
	return t.store.slots.GetTx(ctx, t.tx, byID(id))
}

func (t *postgresTx) IncrementBookings(ctx context.Context, slotID string, expected, delta int) (bool, error) {
	return t.store.slots.IncrementBookingsTx(ctx, t.tx, slotID, expected, delta)
}

func (t *postgresTx) CreateBooking(ctx context.Context, booking bookingModel.Booking) error {
	return t.store.bookings.InsertTx(ctx, t.tx, booking)
}

func (t *postgresTx) FindBookingByKey(ctx context.Context, key string) (bookingModel.Booking, error) {
	return t.store.bookings.GetTx(ctx, t.tx, bookingRepo.ByIdempotencyKey(key))
}

func (t *postgresTx) InsertSlots(ctx context.Context, slots []slotModel.TimeSlot) error {
	return t.store.slots.InsertBulkTx(ctx, t.tx, slots)
}

func (t *postgresTx) UpdateSlot(ctx context.Context, id string, update slotModel.Update, actor string) (bool, error) {
	filter := byID(id)
	if update.MaxCapacity != nil {
		filter.Add(gDto.Filter{
			ArgName:  "capacity_guard",
			Field:    slotModel.FieldCurrentBookings,
			Value:    *update.MaxCapacity,
			Operator: gDto.FilterOperatorLessEq,
		})
	}

	rows, err := t.store.slots.UpdateTx(ctx, t.tx, shared.TransformFields(update, actor), filter)
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (t *postgresTx) DeleteSlot(ctx context.Context, id string) (bool, error) {
	filter := byID(id)
	filter.Add(gDto.Filter{ArgName: "no_bookings", Field: slotModel.FieldCurrentBookings, Value: 0, Operator: gDto.FilterOperatorEq})

	rows, err := t.store.slots.DeleteTx(ctx, t.tx, filter)
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (t *postgresTx) PutSettings(ctx context.Context, settings []settingsModel.Setting) error {
	return t.store.settings.UpsertTx(ctx, t.tx, settings)
}

func (t *postgresTx) BumpVersion(ctx context.Context) (int64, error) {
	return t.store.versions.BumpTx(ctx, t.tx, t.store.dataset)
}
