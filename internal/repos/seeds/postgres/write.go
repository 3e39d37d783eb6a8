package seeds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/betsettle/internal/repos/seeds"
	"github.com/google/uuid"
)

func (r *seedsRepo) Deactivate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE fairness_seed
		SET active = FALSE
		WHERE user_id = $1
		  AND active
	`, userID)
	if err != nil {
		return fmt.Errorf("deactivate seeds: %w", err)
	}

	return nil
}

func (r *seedsRepo) Insert(ctx context.Context, tx *sql.Tx, s seeds.Seed) (seeds.Seed, error) {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO fairness_seed (id, user_id, server_seed, server_seed_hash, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, s.ID, s.UserID, s.ServerSeed, s.ServerSeedHash, s.Active).Scan(&s.CreatedAt)
	if err != nil {
		return seeds.Seed{}, fmt.Errorf("insert seed: %w", err)
	}

	return s, nil
}

func (r *seedsRepo) InsertIfNoActive(ctx context.Context, tx *sql.Tx, s seeds.Seed) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO fairness_seed (id, user_id, server_seed, server_seed_hash, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (user_id) WHERE active DO NOTHING
	`, s.ID, s.UserID, s.ServerSeed, s.ServerSeedHash)
	if err != nil {
		return false, fmt.Errorf("insert seed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *seedsRepo) MarkRevealed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE fairness_seed
		SET revealed_at = $2,
		    active      = FALSE
		WHERE id = $1
		  AND revealed_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark revealed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 1 {
		return nil
	}

	// distinguish a missing row from a second reveal
	_, err = r.GetByID(ctx, tx, id)
	if errors.Is(err, seeds.ErrSeedNotFound) {
		return seeds.ErrSeedNotFound
	}

	return seeds.ErrAlreadyRevealed
}

func (r *seedsRepo) NextNonce(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (int64, error) {
	var nonce int64

	err := tx.QueryRowContext(ctx, `
		INSERT INTO fairness_nonce (user_id, last_nonce)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE
		SET last_nonce = fairness_nonce.last_nonce + 1
		RETURNING last_nonce
	`, userID).Scan(&nonce)
	if err != nil {
		return 0, fmt.Errorf("next nonce: %w", err)
	}

	return nonce, nil
}
