package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/accounts"
	"github.com/google/uuid"
)

func (r *accountsRepo) Get(
	ctx context.Context,
	q pgutils.Querier,
	userID uuid.UUID,
	code currency.Code,
) (accounts.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM account
		WHERE user_id = $1
		  AND currency = $2
	`, userID, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("get account: %w", err)
	}

	return a, nil
}

func (r *accountsRepo) ListByUser(ctx context.Context, q pgutils.Querier, userID uuid.UUID) ([]accounts.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM account
		WHERE user_id = $1
		ORDER BY currency
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return collectAccounts(rows)
}

func (r *accountsRepo) ListAll(ctx context.Context, q pgutils.Querier, after uuid.UUID, limit int) ([]accounts.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM account
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list all accounts: %w", err)
	}

	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]accounts.Account, error) {
	defer rows.Close()

	var out []accounts.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		out = append(out, a)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return out, nil
}
