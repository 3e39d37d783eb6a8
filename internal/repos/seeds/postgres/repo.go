package seeds

import (
	"database/sql"

	"github.com/fastprodman/betsettle/internal/repos/seeds"
)

var _ seeds.Seeds = (*seedsRepo)(nil)

type seedsRepo struct{ db *sql.DB }

func New(db *sql.DB) *seedsRepo {
	return &seedsRepo{db: db}
}

const seedColumns = `id, user_id, server_seed, server_seed_hash, active, created_at, revealed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeed(row rowScanner) (seeds.Seed, error) {
	var s seeds.Seed

	err := row.Scan(&s.ID, &s.UserID, &s.ServerSeed, &s.ServerSeedHash, &s.Active, &s.CreatedAt, &s.RevealedAt)
	if err != nil {
		return seeds.Seed{}, err
	}

	return s, nil
}
