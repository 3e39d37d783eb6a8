package accounts

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/infra/pgtestutil"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/accounts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAccounts_ApplyDelta_Table(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	type tc struct {
		name          string
		available     int64
		locked        int64
		deltaAvail    int64
		deltaLocked   int64
		wantAvailable int64
		wantLocked    int64
		wantErr       error
	}

	tests := []tc{
		{name: "credit", available: 100, deltaAvail: 50, wantAvailable: 150},
		{name: "lock_all", available: 100, deltaAvail: -100, deltaLocked: 100, wantAvailable: 0, wantLocked: 100},
		{name: "settle_win", available: 0, locked: 100, deltaAvail: 198, deltaLocked: -100, wantAvailable: 198},
		{
			name: "overdraw_available_unchanged", available: 10, deltaAvail: -11, deltaLocked: 11,
			wantAvailable: 10, wantErr: accounts.ErrInsufficientFunds,
		},
		{
			name: "overdraw_locked_unchanged", available: 10, locked: 5, deltaAvail: 6, deltaLocked: -6,
			wantAvailable: 10, wantLocked: 5, wantErr: accounts.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userID := uuid.New()

			var id uuid.UUID
			err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
				a, err := repo.LockForUpdate(t.Context(), tx, userID, currency.USDC)
				if err != nil {
					return err
				}

				id = a.ID

				return repo.Overwrite(t.Context(), tx, a.ID, decimal.NewFromInt(tt.available), decimal.NewFromInt(tt.locked))
			})
			require.NoError(t, err)

			err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
				return repo.ApplyDelta(t.Context(), tx, id, decimal.NewFromInt(tt.deltaAvail), decimal.NewFromInt(tt.deltaLocked))
			})
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}

			got, err := repo.Get(t.Context(), db, userID, currency.USDC)
			require.NoError(t, err)
			require.True(t, decimal.NewFromInt(tt.wantAvailable).Equal(got.Available), "available %s", got.Available)
			require.True(t, decimal.NewFromInt(tt.wantLocked).Equal(got.Locked), "locked %s", got.Locked)
		})
	}
}

func TestAccounts_LockForUpdateCreatesOnce(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	userID := uuid.New()

	_, err := repo.Get(t.Context(), db, userID, currency.BTC)
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)

	ids := make([]uuid.UUID, 0, 2)
	for range 2 {
		err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
			a, err := repo.LockForUpdate(t.Context(), tx, userID, currency.BTC)
			ids = append(ids, a.ID)

			return err
		})
		require.NoError(t, err)
	}

	require.Equal(t, ids[0], ids[1])

	list, err := repo.ListByUser(t.Context(), db, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Available.IsZero())
	require.False(t, list[0].Corrupted)
}
