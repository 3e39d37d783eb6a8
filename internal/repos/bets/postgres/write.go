package bets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fastprodman/betsettle/internal/repos/bets"
	"github.com/google/uuid"
)

func (r *betsRepo) Insert(ctx context.Context, tx *sql.Tx, b bets.Bet) (bets.Bet, error) {
	rules, err := json.Marshal(b.Rules)
	if err != nil {
		return bets.Bet{}, fmt.Errorf("encode rules: %w", err)
	}

	params, err := json.Marshal(b.Params)
	if err != nil {
		return bets.Bet{}, fmt.Errorf("encode params: %w", err)
	}

	b.Status = bets.StatusPending

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bet (
			id, user_id, game, currency, stake, potential_payout, client_seed,
			server_seed_hash, seed_id, nonce, status, rules, params
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`, b.ID, b.UserID, b.Game, b.Currency, b.Stake, b.PotentialPayout, b.ClientSeed,
		b.ServerSeedHash, b.SeedID, b.Nonce, b.Status, string(rules), string(params),
	).Scan(&b.CreatedAt)
	if err != nil {
		return bets.Bet{}, fmt.Errorf("insert bet: %w", err)
	}

	return b, nil
}

func (r *betsRepo) Finalize(ctx context.Context, tx *sql.Tx, id uuid.UUID, s bets.Settlement) error {
	trace, err := json.Marshal(s.Trace)
	if err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE bet
		SET status      = $2,
		    result      = $3,
		    multiplier  = $4,
		    payout      = $5,
		    trace       = $6,
		    resolved_at = $7
		WHERE id = $1
		  AND status = 'PENDING'
	`, id, s.Status, s.Result, s.Multiplier, s.Payout, string(trace), s.ResolvedAt)
	if err != nil {
		return fmt.Errorf("finalize bet: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 1 {
		return nil
	}

	_, err = r.Get(ctx, tx, id)
	if errors.Is(err, bets.ErrBetNotFound) {
		return bets.ErrBetNotFound
	}

	return bets.ErrNotPending
}
