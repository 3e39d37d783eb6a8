// Package wallet is the player-facing side of the ledger: balances, entry
// history, the demo faucet and the deposit/withdrawal entry points.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/betsettle/internal/config"
	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/fastprodman/betsettle/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	ErrFaucetDisabled = errors.New("faucet disabled")
	ErrLimitExceeded  = errors.New("faucet daily limit exceeded")
)

type Wallet struct {
	db     *sql.DB
	ledger *ledger.Ledger

	demo bool
	loc  *time.Location
	caps map[currency.Code]decimal.Decimal // smallest units
	now  func() time.Time
}

// New builds a wallet. The faucet only pays out when demo is set.
func New(db *sql.DB, l *ledger.Ledger, demo bool, s config.Settlement) (*Wallet, error) {
	caps := make(map[currency.Code]decimal.Decimal, len(s.FaucetCaps))
	for code, human := range s.FaucetCaps {
		u, err := currency.ToSmallestUnits(human, code)
		if err != nil {
			return nil, fmt.Errorf("faucet cap %s: %w", code, err)
		}
		caps[code] = u
	}

	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Wallet{
		db:     db,
		ledger: l,
		demo:   demo,
		loc:    loc,
		caps:   caps,
		now:    time.Now,
	}, nil
}

// Faucet credits demo funds. A single request may not exceed the daily cap
// and neither may the sum of today's faucet credits, where today starts at
// local midnight in the configured zone.
func (w *Wallet) Faucet(ctx context.Context, userID uuid.UUID, code currency.Code, amount string) (entries.Entry, error) {
	if !w.demo {
		return entries.Entry{}, ErrFaucetDisabled
	}

	units, err := currency.ToSmallestUnits(amount, code)
	if err != nil {
		return entries.Entry{}, err
	}

	limit, ok := w.caps[code]
	if !ok {
		return entries.Entry{}, fmt.Errorf("%w for %s", ErrFaucetDisabled, code)
	}

	if units.GreaterThan(limit) {
		return entries.Entry{}, fmt.Errorf("%w: %s above cap", ErrLimitExceeded, amount)
	}

	day := startOfDay(w.now(), w.loc)
	key := ledger.AccountKey{UserID: userID, Currency: code}

	var e entries.Entry

	err = pgutils.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		issued, err := w.ledger.FaucetSince(ctx, tx, key, day)
		if err != nil {
			return err
		}

		if issued.Add(units).GreaterThan(limit) {
			return fmt.Errorf("%w: %s issued today", ErrLimitExceeded, issued)
		}

		e, err = w.ledger.CreateEntry(ctx, tx, ledger.Posting{
			Key:    key,
			Amount: units,
			Type:   entries.TypeFaucet,
			Meta:   entries.FaucetContext(entries.FaucetMeta{Day: day.Format(time.DateOnly)}),
		})

		return err
	})
	if err != nil {
		return entries.Entry{}, fmt.Errorf("faucet: %w", err)
	}

	slog.InfoContext(ctx, "faucet issued", "user_id", userID, "currency", code, "amount", units.String())

	return e, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Balances returns one row per supported currency, zero for currencies
// the user never touched.
func (w *Wallet) Balances(ctx context.Context, userID uuid.UUID) ([]ledger.Balance, error) {
	cached, err := w.ledger.CachedBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}

	return lo.Map(currency.Supported(), func(code currency.Code, _ int) ledger.Balance {
		b, ok := cached[code]
		if !ok {
			return ledger.Balance{Currency: code, Available: decimal.Zero, Locked: decimal.Zero, Total: decimal.Zero}
		}

		return b
	}), nil
}

// Entries returns the user's ledger history, newest first.
func (w *Wallet) Entries(ctx context.Context, userID uuid.UUID, f entries.Filter) ([]entries.Entry, error) {
	return w.ledger.ListEntries(ctx, userID, f)
}

// Deposit records funds arriving from outside. reference identifies the
// external transfer.
func (w *Wallet) Deposit(
	ctx context.Context,
	userID uuid.UUID,
	code currency.Code,
	amount, reference string,
) (entries.Entry, error) {
	return w.transfer(ctx, userID, code, amount, reference, entries.TypeDeposit)
}

// Withdraw records funds leaving. It needs enough available balance.
func (w *Wallet) Withdraw(
	ctx context.Context,
	userID uuid.UUID,
	code currency.Code,
	amount, reference string,
) (entries.Entry, error) {
	return w.transfer(ctx, userID, code, amount, reference, entries.TypeWithdrawal)
}

func (w *Wallet) transfer(
	ctx context.Context,
	userID uuid.UUID,
	code currency.Code,
	amount, reference string,
	typ entries.Type,
) (entries.Entry, error) {
	units, err := currency.ToSmallestUnits(amount, code)
	if err != nil {
		return entries.Entry{}, err
	}

	if typ == entries.TypeWithdrawal {
		units = units.Neg()
	}

	var e entries.Entry

	err = pgutils.WithTx(ctx, w.db, func(tx *sql.Tx) error {
		var err error

		e, err = w.ledger.CreateEntry(ctx, tx, ledger.Posting{
			Key:    ledger.AccountKey{UserID: userID, Currency: code},
			Amount: units,
			Type:   typ,
			Meta:   entries.TransferContext(reference),
		})

		return err
	})
	if err != nil {
		return entries.Entry{}, fmt.Errorf("%s: %w", typ, err)
	}

	slog.InfoContext(ctx, "transfer recorded",
		"user_id", userID,
		"type", typ,
		"currency", code,
		"amount", units.String(),
		"reference", reference,
	)

	return e, nil
}
