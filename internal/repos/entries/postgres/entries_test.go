package entries

import (
	"database/sql"
	"testing"
	"time"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/infra/pgtestutil"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newAccount(t *testing.T, db *sql.DB, userID uuid.UUID, code currency.Code) uuid.UUID {
	t.Helper()

	id := uuid.New()

	_, err := db.ExecContext(t.Context(), `
		INSERT INTO account (id, user_id, currency) VALUES ($1, $2, $3)
	`, id, userID, code)
	require.NoError(t, err)

	return id
}

func insert(t *testing.T, db *sql.DB, repo *entriesRepo, e entries.Entry) (entries.Entry, error) {
	t.Helper()

	var out entries.Entry

	err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		var err error

		out, err = repo.Insert(t.Context(), tx, e)

		return err
	})

	return out, err
}

func TestEntries_SingleReleasePerRef(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	acct := newAccount(t, db, uuid.New(), currency.USDC)
	ref := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	release := entries.Entry{
		AccountID:   acct,
		Amount:      decimal.NewFromInt(5),
		LockedDelta: decimal.NewFromInt(-5),
		Currency:    currency.USDC,
		Type:        entries.TypeBetWin,
		RefID:       ref,
	}

	first, err := insert(t, db, repo, release)
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.False(t, first.CreatedAt.IsZero())

	_, err = insert(t, db, repo, release)
	require.ErrorIs(t, err, entries.ErrAlreadyReleased)

	release.Type = entries.TypeBetRefund
	_, err = insert(t, db, repo, release)
	require.ErrorIs(t, err, entries.ErrAlreadyReleased)

	// a credit without a locked delta is not a release
	release.LockedDelta = decimal.Zero
	_, err = insert(t, db, repo, release)
	require.NoError(t, err)

	available, locked, err := repo.Sums(t.Context(), db, acct)
	require.NoError(t, err)
	require.Equal(t, "10", available.String())
	require.Equal(t, "-5", locked.String())
}

func TestEntries_SumSinceBoundary(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	acct := newAccount(t, db, uuid.New(), currency.USDC)
	midnight := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	at := map[string]time.Time{
		"before": midnight.Add(-time.Microsecond),
		"at":     midnight,
		"after":  midnight.Add(time.Hour),
	}

	// the ledger is append-only, so the timestamps are written on insert
	for _, ts := range at {
		_, err := db.ExecContext(t.Context(), `
			INSERT INTO ledger_entry (account_id, amount, currency, type, created_at)
			VALUES ($1, 1, $2, $3, $4)
		`, acct, currency.USDC, entries.TypeFaucet, ts)
		require.NoError(t, err)
	}

	_, err := insert(t, db, repo, entries.Entry{
		AccountID: acct,
		Amount:    decimal.NewFromInt(100),
		Currency:  currency.USDC,
		Type:      entries.TypeDeposit,
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		since time.Time
		want  string
	}{
		{name: "includes_exact_boundary", since: midnight, want: "2"},
		{name: "excludes_just_after_boundary", since: midnight.Add(time.Microsecond), want: "1"},
		{name: "includes_everything_earlier", since: midnight.Add(-time.Hour), want: "3"},
		{name: "nothing_later", since: midnight.Add(2 * time.Hour), want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := repo.SumSince(t.Context(), db, acct, entries.TypeFaucet, tt.since)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestEntries_ListByUserFilters(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	userID := uuid.New()
	usdc := newAccount(t, db, userID, currency.USDC)
	btc := newAccount(t, db, userID, currency.BTC)
	other := newAccount(t, db, uuid.New(), currency.USDC)
	ref := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	for _, e := range []entries.Entry{
		{AccountID: usdc, Currency: currency.USDC, Type: entries.TypeDeposit, Amount: decimal.NewFromInt(100)},
		{AccountID: usdc, Currency: currency.USDC, Type: entries.TypeBetStake, Amount: decimal.NewFromInt(-10), LockedDelta: decimal.NewFromInt(10), RefID: ref},
		{AccountID: usdc, Currency: currency.USDC, Type: entries.TypeBetWin, Amount: decimal.NewFromInt(19), LockedDelta: decimal.NewFromInt(-10), RefID: ref},
		{AccountID: btc, Currency: currency.BTC, Type: entries.TypeFaucet, Amount: decimal.NewFromInt(1)},
		{AccountID: other, Currency: currency.USDC, Type: entries.TypeDeposit, Amount: decimal.NewFromInt(1)},
	} {
		_, err := insert(t, db, repo, e)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter entries.Filter
		want   []entries.Type
	}{
		{name: "all_newest_first", filter: entries.Filter{Limit: 10}, want: []entries.Type{
			entries.TypeFaucet, entries.TypeBetWin, entries.TypeBetStake, entries.TypeDeposit,
		}},
		{name: "by_currency", filter: entries.Filter{Currency: currency.BTC, Limit: 10}, want: []entries.Type{entries.TypeFaucet}},
		{name: "by_type", filter: entries.Filter{Type: entries.TypeDeposit, Limit: 10}, want: []entries.Type{entries.TypeDeposit}},
		{name: "by_ref", filter: entries.Filter{RefID: ref, Limit: 10}, want: []entries.Type{entries.TypeBetWin, entries.TypeBetStake}},
		{name: "paged", filter: entries.Filter{Limit: 2, Offset: 1}, want: []entries.Type{entries.TypeBetWin, entries.TypeBetStake}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			list, err := repo.ListByUser(t.Context(), db, userID, tt.filter)
			require.NoError(t, err)

			got := make([]entries.Type, 0, len(list))
			for _, e := range list {
				got = append(got, e.Type)
			}

			require.Equal(t, tt.want, got)
		})
	}
}
