package seeds

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/google/uuid"
)

var (
	ErrSeedNotFound    = errors.New("seed not found")
	ErrAlreadyRevealed = errors.New("seed already revealed")
)

// Seed is one server seed commitment. ServerSeed stays secret until
// RevealedAt is set.
type Seed struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ServerSeed     string
	ServerSeedHash string
	Active         bool
	CreatedAt      time.Time
	RevealedAt     sql.NullTime
}

type Seeds interface {
	Deactivate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error
	Insert(ctx context.Context, tx *sql.Tx, s Seed) (Seed, error)
	// InsertIfNoActive inserts s only when the user has no active seed and
	// reports whether it did.
	InsertIfNoActive(ctx context.Context, tx *sql.Tx, s Seed) (bool, error)
	GetActive(ctx context.Context, q pgutils.Querier, userID uuid.UUID) (Seed, error)
	// ShareActive returns the active seed under a FOR SHARE lock, so it can
	// not be revealed until the caller's transaction ends.
	ShareActive(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (Seed, error)
	GetByID(ctx context.Context, q pgutils.Querier, id uuid.UUID) (Seed, error)
	LockByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Seed, error)
	// HasPendingBets reports whether any PENDING bet was drawn from the seed.
	HasPendingBets(ctx context.Context, q pgutils.Querier, seedID uuid.UUID) (bool, error)
	// MarkRevealed stamps the reveal time once and retires the seed.
	MarkRevealed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error
	ListByUser(ctx context.Context, q pgutils.Querier, userID uuid.UUID, limit, offset int) ([]Seed, error)

	// NextNonce atomically allocates the user's next nonce, starting at 1.
	NextNonce(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (int64, error)
	// LastNonce returns the highest nonce issued so far, 0 when none.
	LastNonce(ctx context.Context, q pgutils.Querier, userID uuid.UUID) (int64, error)
}
