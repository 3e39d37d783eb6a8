package accounts

import (
	"database/sql"

	"github.com/fastprodman/betsettle/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}

const accountColumns = `id, user_id, currency, available, locked, corrupted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (accounts.Account, error) {
	var a accounts.Account

	err := row.Scan(&a.ID, &a.UserID, &a.Currency, &a.Available, &a.Locked, &a.Corrupted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return accounts.Account{}, err
	}

	return a, nil
}
