// Package ledger owns every balance mutation. Each operation runs inside a
// caller-supplied transaction and first row-locks the account, so writes to
// one account serialize while different accounts never wait on each other.
// The cached balances on the account row always move together with exactly
// one appended ledger entry.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/betsettle/internal/repos/accounts/postgres"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	pgentries "github.com/fastprodman/betsettle/internal/repos/entries/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientLocked = errors.New("insufficient locked funds")
	ErrAccountCorrupted   = errors.New("account balance diverged from ledger")
	ErrAlreadySettled     = errors.New("lock already released")
	ErrNonPositiveAmount  = errors.New("amount must be positive")
)

// AccountKey identifies an account: one per user and currency.
type AccountKey struct {
	UserID   uuid.UUID
	Currency currency.Code
}

func (k AccountKey) String() string {
	return k.UserID.String() + "/" + string(k.Currency)
}

type Balance struct {
	Currency  currency.Code   `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
	Total     decimal.Decimal `json:"total"`
}

func newBalance(code currency.Code, available, locked decimal.Decimal) Balance {
	return Balance{Currency: code, Available: available, Locked: locked, Total: available.Add(locked)}
}

type Ledger struct {
	db       *sql.DB
	accounts accounts.Accounts
	entries  entries.Entries
}

func New(db *sql.DB) *Ledger {
	return &Ledger{
		db:       db,
		accounts: pgaccounts.New(db),
		entries:  pgentries.New(db),
	}
}

// Posting is one balance movement.
type Posting struct {
	Key         AccountKey
	Amount      decimal.Decimal // effect on available
	LockedDelta decimal.Decimal // effect on locked
	Type        entries.Type
	RefID       uuid.NullUUID
	Meta        entries.Meta
}

// CreateEntry locks the account, moves its cached balances and appends the
// matching entry. The account is created on first touch.
func (l *Ledger) CreateEntry(ctx context.Context, tx *sql.Tx, p Posting) (entries.Entry, error) {
	acct, err := l.lock(ctx, tx, p.Key)
	if err != nil {
		return entries.Entry{}, err
	}

	return l.post(ctx, tx, acct, p)
}

// LockFunds moves amount from available to locked as a BET_STAKE entry.
func (l *Ledger) LockFunds(
	ctx context.Context,
	tx *sql.Tx,
	key AccountKey,
	amount decimal.Decimal,
	refID uuid.UUID,
	meta entries.Meta,
) (entries.Entry, error) {
	if !amount.IsPositive() {
		return entries.Entry{}, ErrNonPositiveAmount
	}

	acct, err := l.lock(ctx, tx, key)
	if err != nil {
		return entries.Entry{}, err
	}

	if acct.Available.LessThan(amount) {
		return entries.Entry{}, fmt.Errorf("%w: available %s, need %s", ErrInsufficientFunds, acct.Available, amount)
	}

	return l.post(ctx, tx, acct, Posting{
		Key:         key,
		Amount:      amount.Neg(),
		LockedDelta: amount,
		Type:        entries.TypeBetStake,
		RefID:       uuid.NullUUID{UUID: refID, Valid: true},
		Meta:        meta,
	})
}

// ReleaseFunds undoes a lock without an outcome: locked goes back to
// available as a BET_REFUND entry.
func (l *Ledger) ReleaseFunds(
	ctx context.Context,
	tx *sql.Tx,
	key AccountKey,
	amount decimal.Decimal,
	refID uuid.UUID,
	meta entries.Meta,
) (entries.Entry, error) {
	if !amount.IsPositive() {
		return entries.Entry{}, ErrNonPositiveAmount
	}

	acct, err := l.lock(ctx, tx, key)
	if err != nil {
		return entries.Entry{}, err
	}

	if acct.Locked.LessThan(amount) {
		return entries.Entry{}, fmt.Errorf("%w: locked %s, release %s", ErrInsufficientLocked, acct.Locked, amount)
	}

	return l.post(ctx, tx, acct, Posting{
		Key:         key,
		Amount:      amount,
		LockedDelta: amount.Neg(),
		Type:        entries.TypeBetRefund,
		RefID:       uuid.NullUUID{UUID: refID, Valid: true},
		Meta:        meta,
	})
}

// CreditWinnings adds amount to available as a BET_WIN entry. Zero is
// recorded too so a loss still leaves an audit row.
func (l *Ledger) CreditWinnings(
	ctx context.Context,
	tx *sql.Tx,
	key AccountKey,
	amount decimal.Decimal,
	refID uuid.UUID,
	meta entries.Meta,
) (entries.Entry, error) {
	if amount.IsNegative() {
		return entries.Entry{}, ErrNonPositiveAmount
	}

	acct, err := l.lock(ctx, tx, key)
	if err != nil {
		return entries.Entry{}, err
	}

	return l.post(ctx, tx, acct, Posting{
		Key:    key,
		Amount: amount,
		Type:   entries.TypeBetWin,
		RefID:  uuid.NullUUID{UUID: refID, Valid: true},
		Meta:   meta,
	})
}

// Settle is the single settlement primitive for a bet: it consumes the
// stake's lock and credits payout in one BET_WIN entry. A reference can be
// settled at most once; a second attempt fails with ErrAlreadySettled.
func (l *Ledger) Settle(
	ctx context.Context,
	tx *sql.Tx,
	key AccountKey,
	stake, payout decimal.Decimal,
	refID uuid.UUID,
	meta entries.Meta,
) (entries.Entry, error) {
	if !stake.IsPositive() || payout.IsNegative() {
		return entries.Entry{}, ErrNonPositiveAmount
	}

	acct, err := l.lock(ctx, tx, key)
	if err != nil {
		return entries.Entry{}, err
	}

	if acct.Locked.LessThan(stake) {
		return entries.Entry{}, fmt.Errorf("%w: locked %s, stake %s", ErrInsufficientLocked, acct.Locked, stake)
	}

	return l.post(ctx, tx, acct, Posting{
		Key:         key,
		Amount:      payout,
		LockedDelta: stake.Neg(),
		Type:        entries.TypeBetWin,
		RefID:       uuid.NullUUID{UUID: refID, Valid: true},
		Meta:        meta,
	})
}

func (l *Ledger) lock(ctx context.Context, tx *sql.Tx, key AccountKey) (accounts.Account, error) {
	acct, err := l.accounts.LockForUpdate(ctx, tx, key.UserID, key.Currency)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("lock account %s: %w", key, err)
	}

	if acct.Corrupted {
		return accounts.Account{}, fmt.Errorf("account %s: %w", key, ErrAccountCorrupted)
	}

	return acct, nil
}

func (l *Ledger) post(ctx context.Context, tx *sql.Tx, acct accounts.Account, p Posting) (entries.Entry, error) {
	err := l.accounts.ApplyDelta(ctx, tx, acct.ID, p.Amount, p.LockedDelta)
	if err != nil {
		if errors.Is(err, accounts.ErrInsufficientFunds) {
			return entries.Entry{}, fmt.Errorf("%s %s: %w", p.Type, p.Key, ErrInsufficientFunds)
		}

		return entries.Entry{}, fmt.Errorf("apply %s: %w", p.Type, err)
	}

	e, err := l.entries.Insert(ctx, tx, entries.Entry{
		AccountID:   acct.ID,
		Amount:      p.Amount,
		LockedDelta: p.LockedDelta,
		Currency:    p.Key.Currency,
		Type:        p.Type,
		RefID:       p.RefID,
		Meta:        p.Meta,
	})
	if err != nil {
		if errors.Is(err, entries.ErrAlreadyReleased) {
			return entries.Entry{}, fmt.Errorf("%s %s: %w", p.Type, p.RefID.UUID, ErrAlreadySettled)
		}

		return entries.Entry{}, fmt.Errorf("append %s: %w", p.Type, err)
	}

	slog.DebugContext(ctx, "ledger entry",
		"account", p.Key.String(),
		"type", p.Type,
		"amount", p.Amount.String(),
		"locked_delta", p.LockedDelta.String(),
		"ref_id", p.RefID.UUID.String(),
	)

	return e, nil
}
