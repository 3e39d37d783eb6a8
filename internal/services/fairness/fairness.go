// Package fairness runs the commit-reveal scheme: a per-user secret server
// seed is committed by its hash before any bet and disclosed only on
// request, after which every draw made with it can be replayed.
package fairness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/seeds"
	pgseeds "github.com/fastprodman/betsettle/internal/repos/seeds/postgres"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrNoActiveSeed    = errors.New("no active seed")
	ErrHashMismatch    = errors.New("server seed does not match committed hash")
	ErrAlreadyRevealed = errors.New("seed already revealed")
	ErrNotFound        = errors.New("seed not found")
	ErrPendingBets     = errors.New("seed has pending bets")
)

type Service struct {
	db    *sql.DB
	seeds seeds.Seeds
	now   func() time.Time
}

func New(db *sql.DB) *Service {
	return &Service{
		db:    db,
		seeds: pgseeds.New(db),
		now:   time.Now,
	}
}

// Rotation is returned to the seed owner only.
type Rotation struct {
	SeedID         uuid.UUID
	ServerSeed     string
	ServerSeedHash string
}

type Commitment struct {
	SeedID         uuid.UUID `json:"seedId"`
	ServerSeedHash string    `json:"serverSeedHash"`
	NextNonce      int64     `json:"nextNonce"`
}

// Draw is the commitment a bet is placed under.
type Draw struct {
	SeedID         uuid.UUID
	ServerSeedHash string
	Nonce          int64
}

// SeedView is a seed as its owner may see it: the secret only after reveal.
type SeedView struct {
	ID             uuid.UUID  `json:"id"`
	ServerSeedHash string     `json:"serverSeedHash"`
	ServerSeed     string     `json:"serverSeed,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	RevealedAt     *time.Time `json:"revealedAt,omitempty"`
}

func newSeed(userID uuid.UUID) (seeds.Seed, error) {
	secret, err := GenerateServerSeed()
	if err != nil {
		return seeds.Seed{}, fmt.Errorf("generate seed: %w", err)
	}

	return seeds.Seed{
		ID:             uuid.New(),
		UserID:         userID,
		ServerSeed:     secret,
		ServerSeedHash: HashServerSeed(secret),
		Active:         true,
	}, nil
}

// RotateSeed retires the user's active seed and commits to a new one.
func (s *Service) RotateSeed(ctx context.Context, userID uuid.UUID) (Rotation, error) {
	seed, err := newSeed(userID)
	if err != nil {
		return Rotation{}, err
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.seeds.Deactivate(ctx, tx, userID)
		if err != nil {
			return err
		}

		seed, err = s.seeds.Insert(ctx, tx, seed)
		return err
	})
	if err != nil {
		return Rotation{}, fmt.Errorf("rotate seed: %w", err)
	}

	slog.InfoContext(ctx, "seed rotated", "user_id", userID, "seed_id", seed.ID)

	return Rotation{SeedID: seed.ID, ServerSeed: seed.ServerSeed, ServerSeedHash: seed.ServerSeedHash}, nil
}

// CurrentCommitment returns the active seed hash and the nonce the next
// bet will use.
func (s *Service) CurrentCommitment(ctx context.Context, userID uuid.UUID) (Commitment, error) {
	seed, err := s.seeds.GetActive(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, seeds.ErrSeedNotFound) {
			return Commitment{}, ErrNoActiveSeed
		}

		return Commitment{}, fmt.Errorf("get active seed: %w", err)
	}

	last, err := s.seeds.LastNonce(ctx, s.db, userID)
	if err != nil {
		return Commitment{}, fmt.Errorf("last nonce: %w", err)
	}

	return Commitment{SeedID: seed.ID, ServerSeedHash: seed.ServerSeedHash, NextNonce: last + 1}, nil
}

// Commit binds a new bet to the user's active seed, creating one on first
// use, and allocates its nonce. It runs inside the placement transaction so
// the nonce is only consumed when the bet is stored.
func (s *Service) Commit(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (Draw, error) {
	seed, err := s.activeOrCreate(ctx, tx, userID)
	if err != nil {
		return Draw{}, err
	}

	nonce, err := s.seeds.NextNonce(ctx, tx, userID)
	if err != nil {
		return Draw{}, fmt.Errorf("commit: %w", err)
	}

	return Draw{SeedID: seed.ID, ServerSeedHash: seed.ServerSeedHash, Nonce: nonce}, nil
}

// activeOrCreate holds the active seed FOR SHARE until the placement
// commits, so a concurrent reveal waits and then sees the new bet.
func (s *Service) activeOrCreate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (seeds.Seed, error) {
	seed, err := s.seeds.ShareActive(ctx, tx, userID)
	if err == nil {
		return seed, nil
	}
	if !errors.Is(err, seeds.ErrSeedNotFound) {
		return seeds.Seed{}, fmt.Errorf("get active seed: %w", err)
	}

	fresh, err := newSeed(userID)
	if err != nil {
		return seeds.Seed{}, err
	}

	// a concurrent placement may win the insert; either way one seed is active
	_, err = s.seeds.InsertIfNoActive(ctx, tx, fresh)
	if err != nil {
		return seeds.Seed{}, fmt.Errorf("create seed: %w", err)
	}

	seed, err = s.seeds.ShareActive(ctx, tx, userID)
	if err != nil {
		return seeds.Seed{}, fmt.Errorf("get active seed: %w", err)
	}

	return seed, nil
}

// RevealSeed discloses a seed to its owner. It works once per seed,
// retires the seed if it was still active and is refused while any bet
// drawn from the seed is still pending.
func (s *Service) RevealSeed(ctx context.Context, userID, seedID uuid.UUID) (seeds.Seed, error) {
	var seed seeds.Seed

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		seed, err = s.seeds.LockByID(ctx, tx, seedID)
		if err != nil {
			return err
		}

		if seed.UserID != userID {
			return seeds.ErrSeedNotFound
		}

		if seed.RevealedAt.Valid {
			return seeds.ErrAlreadyRevealed
		}

		pending, err := s.seeds.HasPendingBets(ctx, tx, seedID)
		if err != nil {
			return err
		}

		if pending {
			return ErrPendingBets
		}

		at := s.now().UTC()

		err = s.seeds.MarkRevealed(ctx, tx, seedID, at)
		if err != nil {
			return err
		}

		seed.Active = false
		seed.RevealedAt = sql.NullTime{Time: at, Valid: true}

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, seeds.ErrSeedNotFound):
			return seeds.Seed{}, ErrNotFound
		case errors.Is(err, seeds.ErrAlreadyRevealed):
			return seeds.Seed{}, ErrAlreadyRevealed
		case errors.Is(err, ErrPendingBets):
			return seeds.Seed{}, ErrPendingBets
		}

		return seeds.Seed{}, fmt.Errorf("reveal seed: %w", err)
	}

	slog.InfoContext(ctx, "seed revealed", "user_id", userID, "seed_id", seedID)

	return seed, nil
}

// ServerSeed loads a seed by id, secret included, for settlement.
func (s *Service) ServerSeed(ctx context.Context, q pgutils.Querier, seedID uuid.UUID) (seeds.Seed, error) {
	seed, err := s.seeds.GetByID(ctx, q, seedID)
	if err != nil {
		if errors.Is(err, seeds.ErrSeedNotFound) {
			return seeds.Seed{}, ErrNotFound
		}

		return seeds.Seed{}, fmt.Errorf("get seed: %w", err)
	}

	return seed, nil
}

// ListSeeds returns a user's seed history, newest first.
func (s *Service) ListSeeds(ctx context.Context, userID uuid.UUID, limit, offset int) ([]SeedView, error) {
	list, err := s.seeds.ListByUser(ctx, s.db, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}

	return lo.Map(list, func(seed seeds.Seed, _ int) SeedView {
		v := SeedView{
			ID:             seed.ID,
			ServerSeedHash: seed.ServerSeedHash,
			Active:         seed.Active,
			CreatedAt:      seed.CreatedAt,
		}
		if seed.RevealedAt.Valid {
			v.ServerSeed = seed.ServerSeed
			v.RevealedAt = &seed.RevealedAt.Time
		}

		return v
	}), nil
}
