// Package bets orchestrates a wager from quote to settlement. Placement
// commits to a fairness draw and locks the stake in one transaction;
// settlement replays the draw, pays through the ledger and finalizes the
// bet in another.
package bets

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/events"
	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/bets"
	pgbets "github.com/fastprodman/betsettle/internal/repos/bets/postgres"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/fastprodman/betsettle/internal/services/fairness"
	"github.com/fastprodman/betsettle/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidStake    = errors.New("invalid stake")
	ErrNotFound        = errors.New("bet not found")
	ErrAlreadyResolved = errors.New("bet already resolved")
)

const (
	// placeTimeout bounds a placement once it started; the caller's
	// cancellation does not interrupt it.
	placeTimeout = 10 * time.Second

	maxClientSeedLen = 128
)

type Service struct {
	db       *sql.DB
	bets     bets.Bets
	ledger   *ledger.Ledger
	fairness *fairness.Service
	catalog  games.Catalog
	events   events.Publisher

	derive func(serverSeed, clientSeed string, nonce int64) games.RNG
	sample func() (games.RNG, error)
	now    func() time.Time
}

func New(
	db *sql.DB,
	l *ledger.Ledger,
	f *fairness.Service,
	catalog games.Catalog,
	pub events.Publisher,
) *Service {
	return &Service{
		db:       db,
		bets:     pgbets.New(db),
		ledger:   l,
		fairness: f,
		catalog:  catalog,
		events:   pub,
		derive:   fairness.DeriveRNG,
		sample:   randomRNG,
		now:      time.Now,
	}
}

// Request describes a wager in human units.
type Request struct {
	Game       string       `json:"game"`
	Currency   string       `json:"currency"`
	Stake      string       `json:"stake"`
	ClientSeed string       `json:"clientSeed,omitempty"`
	Params     games.Params `json:"params"`
}

// Preview is a quote plus one illustrative outcome from a throwaway draw.
type Preview struct {
	Game            games.Game
	Currency        currency.Code
	Stake           decimal.Decimal
	PotentialPayout decimal.Decimal
	Quote           games.Quote
	Sample          games.Outcome
}

type prepared struct {
	game     games.Game
	currency currency.Code
	stake    decimal.Decimal
	rules    games.Rules
	variant  games.Variant
	quote    games.Quote
}

func (s *Service) prepare(req Request) (prepared, error) {
	code, err := currency.Parse(req.Currency)
	if err != nil {
		return prepared{}, fmt.Errorf("%w: %w", ErrInvalidStake, err)
	}

	stake, err := currency.ToSmallestUnits(req.Stake, code)
	if err != nil {
		return prepared{}, fmt.Errorf("%w: %w", ErrInvalidStake, err)
	}

	g, err := games.ParseGame(req.Game)
	if err != nil {
		return prepared{}, err
	}

	rules, err := s.catalog.Rules(g)
	if err != nil {
		return prepared{}, err
	}

	v, err := games.Build(g, rules, req.Params)
	if err != nil {
		return prepared{}, err
	}

	return prepared{
		game:     g,
		currency: code,
		stake:    stake,
		rules:    rules,
		variant:  v,
		quote:    games.QuoteFor(v, rules),
	}, nil
}

// Preview quotes a wager without touching balances, seeds or bets.
func (s *Service) Preview(_ context.Context, req Request) (Preview, error) {
	p, err := s.prepare(req)
	if err != nil {
		return Preview{}, err
	}

	r, err := s.sample()
	if err != nil {
		return Preview{}, fmt.Errorf("sample draw: %w", err)
	}

	return Preview{
		Game:            p.game,
		Currency:        p.currency,
		Stake:           p.stake,
		PotentialPayout: payout(p.stake, p.quote.Multiplier),
		Quote:           p.quote,
		Sample:          games.Resolve(p.variant, r),
	}, nil
}

// Place locks the stake and stores a PENDING bet bound to the user's
// current commitment and next nonce. Once started, placement runs to
// commit or rollback even if ctx is cancelled, so a caller timeout never
// leaves the outcome unknown to the ledger.
func (s *Service) Place(ctx context.Context, userID uuid.UUID, req Request) (bets.Bet, error) {
	p, err := s.prepare(req)
	if err != nil {
		return bets.Bet{}, err
	}

	clientSeed := req.ClientSeed
	if clientSeed == "" {
		clientSeed, err = fairness.GenerateClientSeed()
		if err != nil {
			return bets.Bet{}, fmt.Errorf("client seed: %w", err)
		}
	}

	if len(clientSeed) > maxClientSeedLen {
		return bets.Bet{}, fmt.Errorf("%w: client seed longer than %d", games.ErrInvalidParams, maxClientSeedLen)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), placeTimeout)
	defer cancel()

	var bet bets.Bet

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		draw, err := s.fairness.Commit(ctx, tx, userID)
		if err != nil {
			return err
		}

		id := uuid.New()

		_, err = s.ledger.LockFunds(ctx, tx,
			ledger.AccountKey{UserID: userID, Currency: p.currency},
			p.stake,
			id,
			entries.BetContext(entries.BetMeta{Game: string(p.game), Nonce: draw.Nonce, Stake: p.stake}),
		)
		if err != nil {
			return err
		}

		bet, err = s.bets.Insert(ctx, tx, bets.Bet{
			ID:              id,
			UserID:          userID,
			Game:            p.game,
			Currency:        p.currency,
			Stake:           p.stake,
			PotentialPayout: payout(p.stake, p.quote.Multiplier),
			ClientSeed:      clientSeed,
			ServerSeedHash:  draw.ServerSeedHash,
			SeedID:          draw.SeedID,
			Nonce:           draw.Nonce,
			Rules:           p.rules,
			Params:          req.Params,
		})

		return err
	})
	if err != nil {
		return bets.Bet{}, fmt.Errorf("place bet: %w", err)
	}

	slog.InfoContext(ctx, "bet placed",
		"bet_id", bet.ID,
		"user_id", userID,
		"game", bet.Game,
		"stake", bet.Stake.String(),
		"nonce", bet.Nonce,
	)

	events.Emit(ctx, s.events, events.TypeBetPlaced, events.BetPlaced{
		BetID:          bet.ID.String(),
		UserID:         userID.String(),
		Game:           string(bet.Game),
		Currency:       string(bet.Currency),
		Stake:          bet.Stake.String(),
		ServerSeedHash: bet.ServerSeedHash,
		Nonce:          bet.Nonce,
	})

	return bet, nil
}

// Resolve settles a PENDING bet at the outcome its draw decides.
func (s *Service) Resolve(ctx context.Context, userID, betID uuid.UUID) (bets.Bet, error) {
	return s.settle(ctx, userID, betID, nil)
}

// Cashout settles a PENDING bet on a continuous game at multiplier. The
// bet is CASHED_OUT when the game reached multiplier before ending and
// LOST otherwise. A nil multiplier settles like Resolve.
func (s *Service) Cashout(ctx context.Context, userID, betID uuid.UUID, multiplier *decimal.Decimal) (bets.Bet, error) {
	if multiplier != nil && multiplier.LessThan(decimal.NewFromInt(1)) {
		return bets.Bet{}, fmt.Errorf("%w: cash-out multiplier %s below 1", games.ErrInvalidParams, multiplier)
	}

	return s.settle(ctx, userID, betID, multiplier)
}

func (s *Service) settle(ctx context.Context, userID, betID uuid.UUID, cashout *decimal.Decimal) (bets.Bet, error) {
	var bet bets.Bet

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		bet, err = s.bets.LockByID(ctx, tx, betID)
		if err != nil {
			return err
		}

		if bet.UserID != userID {
			return bets.ErrBetNotFound
		}

		if bet.Status != bets.StatusPending {
			return bets.ErrNotPending
		}

		seed, err := s.fairness.ServerSeed(ctx, tx, bet.SeedID)
		if err != nil {
			return err
		}

		v, err := games.Build(bet.Game, bet.Rules, bet.Params)
		if err != nil {
			return fmt.Errorf("rebuild %s: %w", bet.Game, err)
		}

		out := games.Resolve(v, s.derive(seed.ServerSeed, bet.ClientSeed, bet.Nonce))

		status, mult, err := decide(v, out, cashout)
		if err != nil {
			return err
		}

		paid := payout(bet.Stake, mult)

		_, err = s.ledger.Settle(ctx, tx,
			ledger.AccountKey{UserID: bet.UserID, Currency: bet.Currency},
			bet.Stake,
			paid,
			bet.ID,
			entries.BetContext(entries.BetMeta{
				Game:       string(bet.Game),
				Nonce:      bet.Nonce,
				Stake:      bet.Stake,
				Multiplier: &mult,
				Status:     string(status),
			}),
		)
		if err != nil {
			return err
		}

		st := bets.Settlement{
			Status:     status,
			Result:     out.Result,
			Multiplier: mult,
			Payout:     paid,
			Trace:      out.Trace,
			ResolvedAt: s.now().UTC(),
		}

		err = s.bets.Finalize(ctx, tx, bet.ID, st)
		if err != nil {
			return err
		}

		bet.Status = st.Status
		bet.Result = sql.NullString{String: string(st.Result), Valid: true}
		bet.Multiplier = decimal.NewNullDecimal(st.Multiplier)
		bet.Payout = decimal.NewNullDecimal(st.Payout)
		bet.Trace = &st.Trace
		bet.ResolvedAt = sql.NullTime{Time: st.ResolvedAt, Valid: true}

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, bets.ErrBetNotFound):
			return bets.Bet{}, ErrNotFound
		case errors.Is(err, bets.ErrNotPending), errors.Is(err, ledger.ErrAlreadySettled):
			return bets.Bet{}, ErrAlreadyResolved
		}

		return bets.Bet{}, fmt.Errorf("settle bet %s: %w", betID, err)
	}

	slog.InfoContext(ctx, "bet settled",
		"bet_id", bet.ID,
		"user_id", bet.UserID,
		"status", bet.Status,
		"multiplier", bet.Multiplier.Decimal.String(),
		"payout", bet.Payout.Decimal.String(),
	)

	events.Emit(ctx, s.events, events.TypeBetSettled, events.BetSettled{
		BetID:      bet.ID.String(),
		UserID:     bet.UserID.String(),
		Game:       string(bet.Game),
		Currency:   string(bet.Currency),
		Status:     string(bet.Status),
		Multiplier: bet.Multiplier.Decimal.String(),
		Payout:     bet.Payout.Decimal.String(),
	})

	return bet, nil
}

// decide maps an outcome, and an optional cash-out request, to the bet's
// terminal status and the multiplier it pays at.
func decide(v games.Variant, out games.Outcome, cashout *decimal.Decimal) (bets.Status, decimal.Decimal, error) {
	if cashout == nil {
		if out.Won() {
			return bets.StatusWon, out.Multiplier, nil
		}

		return bets.StatusLost, decimal.Zero, nil
	}

	if !v.Continuous() {
		return "", decimal.Zero, fmt.Errorf("%w: %s has no cash-out", games.ErrInvalidParams, v.Game())
	}

	if cashout.GreaterThan(out.Reach) {
		return bets.StatusLost, decimal.Zero, nil
	}

	return bets.StatusCashedOut, *cashout, nil
}

// payout is floor(stake × multiplier) in smallest units.
func payout(stake, multiplier decimal.Decimal) decimal.Decimal {
	return stake.Mul(multiplier).Floor()
}

func randomRNG() (games.RNG, error) {
	var buf [4]byte

	_, err := rand.Read(buf[:])
	if err != nil {
		return games.RNG{}, err
	}

	return games.RNG{Prefix: binary.BigEndian.Uint32(buf[:])}, nil
}

// Get returns one of the user's bets.
func (s *Service) Get(ctx context.Context, userID, betID uuid.UUID) (bets.Bet, error) {
	bet, err := s.bets.Get(ctx, s.db, betID)
	if err != nil {
		if errors.Is(err, bets.ErrBetNotFound) {
			return bets.Bet{}, ErrNotFound
		}

		return bets.Bet{}, fmt.Errorf("get bet: %w", err)
	}

	if bet.UserID != userID {
		return bets.Bet{}, ErrNotFound
	}

	return bet, nil
}

// ListByUser pages through a user's bets, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]bets.Bet, error) {
	list, err := s.bets.ListByUser(ctx, s.db, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}

	return list, nil
}

// VerifyBet replays a stored bet against a disclosed server seed. Only the
// bet's own snapshot is consulted: the commitment hash, client seed, nonce,
// rules and params it was placed with.
func (s *Service) VerifyBet(ctx context.Context, userID, betID uuid.UUID, serverSeed string) (fairness.Verification, error) {
	bet, err := s.Get(ctx, userID, betID)
	if err != nil {
		return fairness.Verification{}, err
	}

	return fairness.Verify(fairness.VerifyRequest{
		ServerSeed:   serverSeed,
		ClientSeed:   bet.ClientSeed,
		Nonce:        bet.Nonce,
		Game:         bet.Game,
		Rules:        bet.Rules,
		Params:       bet.Params,
		ExpectedHash: bet.ServerSeedHash,
	}), nil
}

// Rules exposes the current catalog entry for a game, for offline
// verification of draws that were not stored as bets.
func (s *Service) Rules(g games.Game) (games.Rules, error) {
	return s.catalog.Rules(g)
}
