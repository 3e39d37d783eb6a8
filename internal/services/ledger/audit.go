package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/accounts"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// GetAccountBalance recomputes an account's balance from its ledger
// entries. This is the audit source of truth; an untouched account is zero.
func (l *Ledger) GetAccountBalance(ctx context.Context, key AccountKey) (Balance, error) {
	acct, err := l.accounts.Get(ctx, l.db, key.UserID, key.Currency)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return newBalance(key.Currency, decimal.Zero, decimal.Zero), nil
		}

		return Balance{}, fmt.Errorf("get account %s: %w", key, err)
	}

	available, locked, err := l.entries.Sums(ctx, l.db, acct.ID)
	if err != nil {
		return Balance{}, fmt.Errorf("sum ledger %s: %w", key, err)
	}

	return newBalance(key.Currency, available, locked), nil
}

// GetAccountBalanceByCurrency recomputes every account of a user from the
// ledger, keyed by currency.
func (l *Ledger) GetAccountBalanceByCurrency(ctx context.Context, userID uuid.UUID) (map[currency.Code]Balance, error) {
	accts, err := l.accounts.ListByUser(ctx, l.db, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	out := make(map[currency.Code]Balance, len(accts))
	for _, a := range accts {
		available, locked, err := l.entries.Sums(ctx, l.db, a.ID)
		if err != nil {
			return nil, fmt.Errorf("sum ledger %s: %w", a.Currency, err)
		}

		out[a.Currency] = newBalance(a.Currency, available, locked)
	}

	return out, nil
}

// CachedBalances returns the cached account balances of a user keyed by
// currency. Reads do not lock.
func (l *Ledger) CachedBalances(ctx context.Context, userID uuid.UUID) (map[currency.Code]Balance, error) {
	accts, err := l.accounts.ListByUser(ctx, l.db, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return lo.SliceToMap(accts, func(a accounts.Account) (currency.Code, Balance) {
		return a.Currency, newBalance(a.Currency, a.Available, a.Locked)
	}), nil
}

// ValidateBalance reports whether the cached available balance covers
// required. It does not lock, so callers still rely on LockFunds.
func (l *Ledger) ValidateBalance(ctx context.Context, key AccountKey, required decimal.Decimal) (bool, error) {
	acct, err := l.accounts.Get(ctx, l.db, key.UserID, key.Currency)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return !required.IsPositive(), nil
		}

		return false, fmt.Errorf("get account %s: %w", key, err)
	}

	return acct.Available.GreaterThanOrEqual(required), nil
}

// Report compares the cached balances with the ledger sums.
type Report struct {
	Key        AccountKey
	Cached     Balance
	Ledger     Balance
	Consistent bool
}

// CheckConsistency compares an account's cached balances with its ledger.
// A divergent account is flagged corrupted and refuses writes until
// Reconcile runs.
func (l *Ledger) CheckConsistency(ctx context.Context, key AccountKey) (Report, error) {
	var rep Report

	err := pgutils.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		acct, err := l.accounts.LockForUpdate(ctx, tx, key.UserID, key.Currency)
		if err != nil {
			return fmt.Errorf("lock account %s: %w", key, err)
		}

		rep, err = l.compare(ctx, tx, key, acct)
		if err != nil {
			return err
		}

		if rep.Consistent || acct.Corrupted {
			return nil
		}

		slog.ErrorContext(ctx, "ledger divergence",
			"account", key.String(),
			"cached_available", rep.Cached.Available.String(),
			"cached_locked", rep.Cached.Locked.String(),
			"ledger_available", rep.Ledger.Available.String(),
			"ledger_locked", rep.Ledger.Locked.String(),
		)

		return l.accounts.SetCorrupted(ctx, tx, acct.ID, true)
	})
	if err != nil {
		return Report{}, fmt.Errorf("check consistency: %w", err)
	}

	return rep, nil
}

// Reconcile rewrites the cached balances from the ledger and clears the
// corrupted flag.
func (l *Ledger) Reconcile(ctx context.Context, key AccountKey) (Report, error) {
	var rep Report

	err := pgutils.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		acct, err := l.accounts.LockForUpdate(ctx, tx, key.UserID, key.Currency)
		if err != nil {
			return fmt.Errorf("lock account %s: %w", key, err)
		}

		rep, err = l.compare(ctx, tx, key, acct)
		if err != nil {
			return err
		}

		if rep.Ledger.Available.IsNegative() || rep.Ledger.Locked.IsNegative() {
			return fmt.Errorf("ledger of %s sums negative: %w", key, ErrAccountCorrupted)
		}

		err = l.accounts.Overwrite(ctx, tx, acct.ID, rep.Ledger.Available, rep.Ledger.Locked)
		if err != nil {
			return fmt.Errorf("overwrite %s: %w", key, err)
		}

		if !rep.Consistent || acct.Corrupted {
			slog.WarnContext(ctx, "account reconciled",
				"account", key.String(),
				"available", rep.Ledger.Available.String(),
				"locked", rep.Ledger.Locked.String(),
			)
		}

		return l.accounts.SetCorrupted(ctx, tx, acct.ID, false)
	})
	if err != nil {
		return Report{}, fmt.Errorf("reconcile: %w", err)
	}

	return rep, nil
}

const auditPage = 200

// AuditAll runs CheckConsistency over every account, page by page, and
// returns the reports of the divergent ones. Accounts already flagged
// corrupted are reported again until reconciled.
func (l *Ledger) AuditAll(ctx context.Context) ([]Report, error) {
	var (
		divergent []Report
		after     uuid.UUID
		checked   int
	)

	for {
		page, err := l.accounts.ListAll(ctx, l.db, after, auditPage)
		if err != nil {
			return divergent, fmt.Errorf("audit: %w", err)
		}

		for _, acct := range page {
			key := AccountKey{UserID: acct.UserID, Currency: acct.Currency}

			rep, err := l.CheckConsistency(ctx, key)
			if err != nil {
				return divergent, fmt.Errorf("audit %s: %w", key, err)
			}

			if !rep.Consistent {
				divergent = append(divergent, rep)
			}
		}

		checked += len(page)

		if len(page) < auditPage {
			break
		}

		after = page[len(page)-1].ID
	}

	slog.InfoContext(ctx, "ledger audit done", "accounts", checked, "divergent", len(divergent))

	return divergent, nil
}

func (l *Ledger) compare(ctx context.Context, tx *sql.Tx, key AccountKey, acct accounts.Account) (Report, error) {
	available, locked, err := l.entries.Sums(ctx, tx, acct.ID)
	if err != nil {
		return Report{}, fmt.Errorf("sum ledger %s: %w", key, err)
	}

	rep := Report{
		Key:    key,
		Cached: newBalance(key.Currency, acct.Available, acct.Locked),
		Ledger: newBalance(key.Currency, available, locked),
	}
	rep.Consistent = rep.Cached.Available.Equal(available) && rep.Cached.Locked.Equal(locked)

	return rep, nil
}

// ListEntries returns a user's ledger entries, newest first.
func (l *Ledger) ListEntries(ctx context.Context, userID uuid.UUID, f entries.Filter) ([]entries.Entry, error) {
	out, err := l.entries.ListByUser(ctx, l.db, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return out, nil
}

// FaucetSince sums the FAUCET entries of an account created at or after
// since, under the caller's account lock.
func (l *Ledger) FaucetSince(ctx context.Context, tx *sql.Tx, key AccountKey, since time.Time) (decimal.Decimal, error) {
	acct, err := l.lock(ctx, tx, key)
	if err != nil {
		return decimal.Zero, err
	}

	total, err := l.entries.SumSince(ctx, tx, acct.ID, entries.TypeFaucet, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum faucet %s: %w", key, err)
	}

	return total, nil
}
