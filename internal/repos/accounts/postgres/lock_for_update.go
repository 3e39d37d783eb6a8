package accounts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/repos/accounts"
	"github.com/google/uuid"
)

func (r *accountsRepo) LockForUpdate(
	ctx context.Context,
	tx *sql.Tx,
	userID uuid.UUID,
	code currency.Code,
) (accounts.Account, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO account (id, user_id, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, currency) DO NOTHING
	`, uuid.New(), userID, code)
	if err != nil {
		return accounts.Account{}, fmt.Errorf("ensure account: %w", err)
	}

	a, err := scanAccount(tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM account
		WHERE user_id = $1
		  AND currency = $2
		FOR UPDATE
	`, userID, code))
	if err != nil {
		return accounts.Account{}, fmt.Errorf("lock account: %w", err)
	}

	return a, nil
}
