package repository_test

import (
	"context"
	"errors"
	"slotbook/infras/otel/mocks"
	"slotbook/infras/postgres"
	"slotbook/internal/domains/slot/repository"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incrementQuery = `UPDATE time_slots SET current_bookings = \$1, modified_at = \$2, modified_by = \$3\s+` +
	`WHERE \(id = \$4 AND current_bookings = \$5 AND max_capacity >= \$6\)`

func TestSlotRepository_IncrementBookingsTx(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		execErr  error
		want     bool
		wantErr  bool
	}{
		{name: "swapped", affected: 1, want: true},
		{name: "lost the race or over capacity", affected: 0, want: false},
		{name: "driver failure", execErr: errors.New("conn closed"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			sqlxDB := sqlx.NewDb(db, "postgres")
			repo := repository.New(&postgres.Connection{Read: sqlxDB, Write: sqlxDB}, mocks.NewOtel())

			mock.ExpectBegin()

			exec := mock.ExpectExec(incrementQuery).
				WithArgs(int64(5), sqlmock.AnyArg(), "customer", "s1", int64(3), int64(5))
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			sqltx, err := sqlxDB.Beginx()
			require.NoError(t, err)

			swapped, err := repo.IncrementBookingsTx(context.Background(), sqltx, "s1", 3, 2)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.want, swapped)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
