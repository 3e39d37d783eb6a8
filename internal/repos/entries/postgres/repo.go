package entries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ entries.Entries = (*entriesRepo)(nil)

const singleReleaseIndex = "ledger_entry_single_release_idx"

type entriesRepo struct{ db *sql.DB }

func New(db *sql.DB) *entriesRepo {
	return &entriesRepo{db: db}
}

func (r *entriesRepo) Insert(ctx context.Context, tx *sql.Tx, e entries.Entry) (entries.Entry, error) {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entry (account_id, amount, locked_delta, currency, type, ref_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, e.AccountID, e.Amount, e.LockedDelta, e.Currency, e.Type, e.RefID, e.Meta).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err, singleReleaseIndex) {
			return entries.Entry{}, entries.ErrAlreadyReleased
		}

		return entries.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	return e, nil
}

func (r *entriesRepo) Sums(
	ctx context.Context,
	q pgutils.Querier,
	accountID uuid.UUID,
) (decimal.Decimal, decimal.Decimal, error) {
	var available, locked decimal.Decimal

	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0), COALESCE(SUM(locked_delta), 0)
		FROM ledger_entry
		WHERE account_id = $1
	`, accountID).Scan(&available, &locked)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum entries: %w", err)
	}

	return available, locked, nil
}

func (r *entriesRepo) SumSince(
	ctx context.Context,
	q pgutils.Querier,
	accountID uuid.UUID,
	typ entries.Type,
	since time.Time,
) (decimal.Decimal, error) {
	var total decimal.Decimal

	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entry
		WHERE account_id = $1
		  AND type = $2
		  AND created_at >= $3
	`, accountID, typ, since).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum %s entries: %w", typ, err)
	}

	return total, nil
}

func (r *entriesRepo) ListByUser(
	ctx context.Context,
	q pgutils.Querier,
	userID uuid.UUID,
	f entries.Filter,
) ([]entries.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT e.id, e.account_id, e.amount, e.locked_delta, e.currency, e.type, e.ref_id, e.meta, e.created_at
		FROM ledger_entry e
		JOIN account a ON a.id = e.account_id
		WHERE a.user_id = $1
		  AND ($2::text = '' OR e.currency = $2::text)
		  AND ($3::text = '' OR e.type = $3::text)
		  AND ($4::uuid IS NULL OR e.ref_id = $4::uuid)
		ORDER BY e.id DESC
		LIMIT $5 OFFSET $6
	`, userID, f.Currency, f.Type, f.RefID, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []entries.Entry
	for rows.Next() {
		var e entries.Entry

		err = rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.LockedDelta, &e.Currency, &e.Type, &e.RefID, &e.Meta, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return out, nil
}
