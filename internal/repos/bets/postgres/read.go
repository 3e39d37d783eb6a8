package bets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/bets"
	"github.com/google/uuid"
)

func (r *betsRepo) LockByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bets.Bet, error) {
	b, err := scanBet(tx.QueryRowContext(ctx, `
		SELECT `+betColumns+`
		FROM bet
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bets.Bet{}, bets.ErrBetNotFound
		}

		return bets.Bet{}, fmt.Errorf("lock bet: %w", err)
	}

	return b, nil
}

func (r *betsRepo) Get(ctx context.Context, q pgutils.Querier, id uuid.UUID) (bets.Bet, error) {
	b, err := scanBet(q.QueryRowContext(ctx, `
		SELECT `+betColumns+`
		FROM bet
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bets.Bet{}, bets.ErrBetNotFound
		}

		return bets.Bet{}, fmt.Errorf("get bet: %w", err)
	}

	return b, nil
}

func (r *betsRepo) ListByUser(
	ctx context.Context,
	q pgutils.Querier,
	userID uuid.UUID,
	limit, offset int,
) ([]bets.Bet, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+betColumns+`
		FROM bet
		WHERE user_id = $1
		ORDER BY created_at DESC, nonce DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var out []bets.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}

		out = append(out, b)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate bets: %w", err)
	}

	return out, nil
}
