package bets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBetNotFound = errors.New("bet not found")
	ErrNotPending  = errors.New("bet is not pending")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusWon       Status = "WON"
	StatusLost      Status = "LOST"
	StatusCashedOut Status = "CASHED_OUT"
)

// Bet is one wager. The commitment fields (ServerSeedHash, SeedID, Nonce,
// ClientSeed) and the rules snapshot are fixed at placement.
type Bet struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Game            games.Game
	Currency        currency.Code
	Stake           decimal.Decimal
	PotentialPayout decimal.Decimal
	ClientSeed      string
	ServerSeedHash  string
	SeedID          uuid.UUID
	Nonce           int64
	Status          Status
	Rules           games.Rules
	Params          games.Params
	CreatedAt       time.Time

	// set once by Finalize
	Payout     decimal.NullDecimal
	Result     sql.NullString
	Multiplier decimal.NullDecimal
	Trace      *games.Trace
	ResolvedAt sql.NullTime
}

// Settlement is the terminal state written by Finalize.
type Settlement struct {
	Status     Status
	Result     games.Result
	Multiplier decimal.Decimal
	Payout     decimal.Decimal
	Trace      games.Trace
	ResolvedAt time.Time
}

type Bets interface {
	Insert(ctx context.Context, tx *sql.Tx, b Bet) (Bet, error)
	LockByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Bet, error)
	// Finalize moves a PENDING bet to its terminal state exactly once.
	Finalize(ctx context.Context, tx *sql.Tx, id uuid.UUID, s Settlement) error
	Get(ctx context.Context, q pgutils.Querier, id uuid.UUID) (Bet, error)
	ListByUser(ctx context.Context, q pgutils.Querier, userID uuid.UUID, limit, offset int) ([]Bet, error)
}
