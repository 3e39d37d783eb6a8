package entries

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

// ErrAlreadyReleased is returned when a reference gives its lock back twice.
var ErrAlreadyReleased = errors.New("reference already released")

type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeBetStake   Type = "BET_STAKE"
	TypeBetWin     Type = "BET_WIN"
	TypeBetRefund  Type = "BET_REFUND"
	TypeFaucet     Type = "FAUCET"
	TypeTransfer   Type = "TRANSFER"
)

// Entry is one immutable ledger row. Amount is the effect on the available
// balance and LockedDelta the effect on the locked balance.
type Entry struct {
	ID          int64           `json:"id"`
	AccountID   uuid.UUID       `json:"accountId"`
	Amount      decimal.Decimal `json:"amount"`
	LockedDelta decimal.Decimal `json:"lockedDelta"`
	Currency    currency.Code   `json:"currency"`
	Type        Type            `json:"type"`
	RefID       uuid.NullUUID   `json:"refId"`
	Meta        Meta            `json:"meta"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Filter struct {
	Currency currency.Code // empty means all
	Type     Type          // empty means all
	RefID    uuid.NullUUID
	Limit    int
	Offset   int
}

type Entries interface {
	// Insert appends e and returns it with ID and CreatedAt filled.
	Insert(ctx context.Context, tx *sql.Tx, e Entry) (Entry, error)
	// Sums returns Σamount and Σlocked_delta of an account.
	Sums(ctx context.Context, q pgutils.Querier, accountID uuid.UUID) (available, locked decimal.Decimal, err error)
	SumSince(ctx context.Context, q pgutils.Querier, accountID uuid.UUID, typ Type, since time.Time) (decimal.Decimal, error)
	ListByUser(ctx context.Context, q pgutils.Querier, userID uuid.UUID, f Filter) ([]Entry, error)
}
