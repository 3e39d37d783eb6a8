package bets

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/repos/bets"
)

var _ bets.Bets = (*betsRepo)(nil)

type betsRepo struct{ db *sql.DB }

func New(db *sql.DB) *betsRepo {
	return &betsRepo{db: db}
}

const betColumns = `id, user_id, game, currency, stake, potential_payout, client_seed, server_seed_hash,
	seed_id, nonce, status, rules, params, created_at, payout, result, multiplier, trace, resolved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (bets.Bet, error) {
	var (
		b             bets.Bet
		rules, params []byte
		trace         []byte
	)

	err := row.Scan(
		&b.ID, &b.UserID, &b.Game, &b.Currency, &b.Stake, &b.PotentialPayout, &b.ClientSeed, &b.ServerSeedHash,
		&b.SeedID, &b.Nonce, &b.Status, &rules, &params, &b.CreatedAt, &b.Payout, &b.Result, &b.Multiplier, &trace,
		&b.ResolvedAt,
	)
	if err != nil {
		return bets.Bet{}, err
	}

	err = json.Unmarshal(rules, &b.Rules)
	if err != nil {
		return bets.Bet{}, fmt.Errorf("decode rules: %w", err)
	}

	err = json.Unmarshal(params, &b.Params)
	if err != nil {
		return bets.Bet{}, fmt.Errorf("decode params: %w", err)
	}

	if trace != nil {
		b.Trace = new(games.Trace)

		err = json.Unmarshal(trace, b.Trace)
		if err != nil {
			return bets.Bet{}, fmt.Errorf("decode trace: %w", err)
		}
	}

	return b, nil
}
