package accounts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/betsettle/internal/repos/accounts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (r *accountsRepo) ApplyDelta(
	ctx context.Context,
	tx *sql.Tx,
	accountID uuid.UUID,
	available, locked decimal.Decimal,
) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE account
		SET available  = available + $2,
		    locked     = locked + $3,
		    updated_at = now()
		WHERE id = $1
		  AND available + $2 >= 0
		  AND locked + $3 >= 0
	`, accountID, available, locked)
	if err != nil {
		return fmt.Errorf("apply delta: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrInsufficientFunds
	}

	return nil
}

func (r *accountsRepo) Overwrite(
	ctx context.Context,
	tx *sql.Tx,
	accountID uuid.UUID,
	available, locked decimal.Decimal,
) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE account
		SET available  = $2,
		    locked     = $3,
		    updated_at = now()
		WHERE id = $1
	`, accountID, available, locked)
	if err != nil {
		return fmt.Errorf("overwrite balances: %w", err)
	}

	return requireOne(res)
}

func (r *accountsRepo) SetCorrupted(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, corrupted bool) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE account
		SET corrupted  = $2,
		    updated_at = now()
		WHERE id = $1
	`, accountID, corrupted)
	if err != nil {
		return fmt.Errorf("set corrupted: %w", err)
	}

	return requireOne(res)
}

func requireOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}
