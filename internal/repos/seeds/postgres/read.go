package seeds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/seeds"
	"github.com/google/uuid"
)

func (r *seedsRepo) GetActive(ctx context.Context, q pgutils.Querier, userID uuid.UUID) (seeds.Seed, error) {
	s, err := scanSeed(q.QueryRowContext(ctx, `
		SELECT `+seedColumns+`
		FROM fairness_seed
		WHERE user_id = $1
		  AND active
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return seeds.Seed{}, seeds.ErrSeedNotFound
		}

		return seeds.Seed{}, fmt.Errorf("get active seed: %w", err)
	}

	return s, nil
}

func (r *seedsRepo) ShareActive(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (seeds.Seed, error) {
	s, err := scanSeed(tx.QueryRowContext(ctx, `
		SELECT `+seedColumns+`
		FROM fairness_seed
		WHERE user_id = $1
		  AND active
		FOR SHARE
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return seeds.Seed{}, seeds.ErrSeedNotFound
		}

		return seeds.Seed{}, fmt.Errorf("share active seed: %w", err)
	}

	return s, nil
}

func (r *seedsRepo) HasPendingBets(ctx context.Context, q pgutils.Querier, seedID uuid.UUID) (bool, error) {
	var pending bool

	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM bet
			WHERE seed_id = $1
			  AND status = 'PENDING'
		)
	`, seedID).Scan(&pending)
	if err != nil {
		return false, fmt.Errorf("pending bets: %w", err)
	}

	return pending, nil
}

func (r *seedsRepo) GetByID(ctx context.Context, q pgutils.Querier, id uuid.UUID) (seeds.Seed, error) {
	s, err := scanSeed(q.QueryRowContext(ctx, `
		SELECT `+seedColumns+`
		FROM fairness_seed
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return seeds.Seed{}, seeds.ErrSeedNotFound
		}

		return seeds.Seed{}, fmt.Errorf("get seed: %w", err)
	}

	return s, nil
}

func (r *seedsRepo) LockByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (seeds.Seed, error) {
	s, err := scanSeed(tx.QueryRowContext(ctx, `
		SELECT `+seedColumns+`
		FROM fairness_seed
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return seeds.Seed{}, seeds.ErrSeedNotFound
		}

		return seeds.Seed{}, fmt.Errorf("lock seed: %w", err)
	}

	return s, nil
}

func (r *seedsRepo) ListByUser(
	ctx context.Context,
	q pgutils.Querier,
	userID uuid.UUID,
	limit, offset int,
) ([]seeds.Seed, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+seedColumns+`
		FROM fairness_seed
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}
	defer rows.Close()

	var out []seeds.Seed
	for rows.Next() {
		s, err := scanSeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seed: %w", err)
		}

		out = append(out, s)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate seeds: %w", err)
	}

	return out, nil
}

func (r *seedsRepo) LastNonce(ctx context.Context, q pgutils.Querier, userID uuid.UUID) (int64, error) {
	var nonce int64

	err := q.QueryRowContext(ctx, `
		SELECT last_nonce
		FROM fairness_nonce
		WHERE user_id = $1
	`, userID).Scan(&nonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("last nonce: %w", err)
	}

	return nonce, nil
}
