package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Account is the cached balance of one (user, currency) pair.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Currency  currency.Code
	Available decimal.Decimal
	Locked    decimal.Decimal
	Corrupted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Accounts interface {
	// LockForUpdate creates the account on first touch and row-locks it.
	LockForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID, code currency.Code) (Account, error)
	// ApplyDelta moves the cached balances; it fails with ErrInsufficientFunds
	// instead of letting either side go negative.
	ApplyDelta(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, available, locked decimal.Decimal) error
	Overwrite(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, available, locked decimal.Decimal) error
	SetCorrupted(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, corrupted bool) error
	Get(ctx context.Context, q pgutils.Querier, userID uuid.UUID, code currency.Code) (Account, error)
	ListByUser(ctx context.Context, q pgutils.Querier, userID uuid.UUID) ([]Account, error)
	// ListAll pages through every account in id order, starting after the
	// given id (uuid.Nil for the first page).
	ListAll(ctx context.Context, q pgutils.Querier, after uuid.UUID, limit int) ([]Account, error)
}
