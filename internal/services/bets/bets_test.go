package bets

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/events"
	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/infra/pgtestutil"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/repos/bets"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	"github.com/fastprodman/betsettle/internal/services/fairness"
	"github.com/fastprodman/betsettle/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	rng010 = 429496729  // floor(0.10 * 2^32)
	rng050 = 1 << 31    // 0.5
	rng060 = 2576980377 // floor(0.60 * 2^32)
)

type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) Publish(_ context.Context, typ string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = append(r.types, typ)

	return nil
}

func (r *recorder) Close() {}

type fixture struct {
	db     *sql.DB
	ledger *ledger.Ledger
	fair   *fairness.Service
	svc    *Service
	events *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	f := &fixture{
		db:     db,
		ledger: ledger.New(db),
		fair:   fairness.New(db),
		events: &recorder{},
	}
	f.svc = New(db, f.ledger, f.fair, games.DefaultCatalog(), f.events)

	return f
}

// fixDraw makes every settlement see prefix instead of the HMAC draw.
func (f *fixture) fixDraw(prefix uint32) {
	f.svc.derive = func(string, string, int64) games.RNG { return games.RNG{Prefix: prefix} }
}

func (f *fixture) fund(t *testing.T, user uuid.UUID, amount string) {
	t.Helper()

	units, err := currency.ToSmallestUnits(amount, currency.USDC)
	require.NoError(t, err)

	err = pgutils.WithTx(t.Context(), f.db, func(tx *sql.Tx) error {
		_, err := f.ledger.CreateEntry(t.Context(), tx, ledger.Posting{
			Key:    ledger.AccountKey{UserID: user, Currency: currency.USDC},
			Amount: units,
			Type:   entries.TypeDeposit,
			Meta:   entries.TransferContext("test"),
		})
		return err
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, user uuid.UUID) (available, locked string) {
	t.Helper()

	key := ledger.AccountKey{UserID: user, Currency: currency.USDC}

	b, err := f.ledger.GetAccountBalance(t.Context(), key)
	require.NoError(t, err)

	rep, err := f.ledger.CheckConsistency(t.Context(), key)
	require.NoError(t, err)
	require.True(t, rep.Consistent)

	a, err := currency.FromSmallestUnits(b.Available, currency.USDC)
	require.NoError(t, err)
	l, err := currency.FromSmallestUnits(b.Locked, currency.USDC)
	require.NoError(t, err)

	return a, l
}

func flip(stake string) Request {
	return Request{Game: "candle_flip", Currency: "USDC", Stake: stake, ClientSeed: "client"}
}

func TestPlaceAndResolve_CandleFlipWin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "100")

	bet, err := f.svc.Place(t.Context(), user, flip("10.00"))
	require.NoError(t, err)
	require.Equal(t, bets.StatusPending, bet.Status)
	require.Equal(t, int64(1), bet.Nonce)
	require.Equal(t, "19800000", bet.PotentialPayout.String())

	available, locked := f.balance(t, user)
	require.Equal(t, "90", available)
	require.Equal(t, "10", locked)

	f.fixDraw(rng010)

	bet, err = f.svc.Resolve(t.Context(), user, bet.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusWon, bet.Status)
	require.Equal(t, "1.98", bet.Multiplier.Decimal.String())
	require.Equal(t, "19800000", bet.Payout.Decimal.String())
	require.NotNil(t, bet.Trace)
	require.Equal(t, uint32(rng010), bet.Trace.Prefix)

	available, locked = f.balance(t, user)
	require.Equal(t, "109.8", available)
	require.Equal(t, "0", locked)

	stored, err := f.svc.Get(t.Context(), user, bet.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusWon, stored.Status)
	require.Equal(t, string(games.ResultWin), stored.Result.String)

	_, err = f.svc.Resolve(t.Context(), user, bet.ID)
	require.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = f.svc.Cashout(t.Context(), user, bet.ID, nil)
	require.ErrorIs(t, err, ErrAlreadyResolved)

	require.Equal(t, []string{events.TypeBetPlaced, events.TypeBetSettled}, f.events.types)
}

func TestPlaceAndResolve_CandleFlipLoss(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "100")

	bet, err := f.svc.Place(t.Context(), user, flip("10"))
	require.NoError(t, err)

	f.fixDraw(rng060)

	bet, err = f.svc.Resolve(t.Context(), user, bet.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusLost, bet.Status)
	require.True(t, bet.Multiplier.Decimal.IsZero())
	require.True(t, bet.Payout.Decimal.IsZero())

	available, locked := f.balance(t, user)
	require.Equal(t, "90", available)
	require.Equal(t, "0", locked)
}

func TestPlace_Rejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "5")

	_, err := f.svc.Place(t.Context(), user, flip("10"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = f.svc.Place(t.Context(), user, flip("0"))
	require.ErrorIs(t, err, ErrInvalidStake)

	// a rejected placement consumes no nonce
	c, err := f.fair.CurrentCommitment(t.Context(), user)
	require.ErrorIs(t, err, fairness.ErrNoActiveSeed, "commitment %+v", c)

	bet, err := f.svc.Place(t.Context(), user, flip("5"))
	require.NoError(t, err)
	require.Equal(t, int64(1), bet.Nonce)

	available, locked := f.balance(t, user)
	require.Equal(t, "0", available)
	require.Equal(t, "5", locked)
}

func TestResolve_OwnershipAndUnknown(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "10")

	bet, err := f.svc.Place(t.Context(), user, flip("1"))
	require.NoError(t, err)

	_, err = f.svc.Resolve(t.Context(), uuid.New(), bet.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(t.Context(), uuid.New(), bet.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Resolve(t.Context(), user, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	// the failed attempts left the bet pending
	stored, err := f.svc.Get(t.Context(), user, bet.ID)
	require.NoError(t, err)
	require.Equal(t, bets.StatusPending, stored.Status)
}

func TestCashout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "100")
	f.fixDraw(rng050) // to_the_moon crashes at 2, reach 1.99

	moon := Request{Game: "to_the_moon", Currency: "USDC", Stake: "10"}

	cashed, err := f.svc.Place(t.Context(), user, moon)
	require.NoError(t, err)

	at := decimal.RequireFromString("1.5")
	cashed, err = f.svc.Cashout(t.Context(), user, cashed.ID, &at)
	require.NoError(t, err)
	require.Equal(t, bets.StatusCashedOut, cashed.Status)
	require.Equal(t, "15000000", cashed.Payout.Decimal.String())
	require.Equal(t, string(games.ResultCrash), cashed.Result.String)

	busted, err := f.svc.Place(t.Context(), user, moon)
	require.NoError(t, err)

	too := decimal.RequireFromString("2.5")
	busted, err = f.svc.Cashout(t.Context(), user, busted.ID, &too)
	require.NoError(t, err)
	require.Equal(t, bets.StatusLost, busted.Status)

	below := decimal.RequireFromString("0.5")
	_, err = f.svc.Cashout(t.Context(), user, busted.ID, &below)
	require.ErrorIs(t, err, games.ErrInvalidParams)

	fixed, err := f.svc.Place(t.Context(), user, flip("10"))
	require.NoError(t, err)

	_, err = f.svc.Cashout(t.Context(), user, fixed.ID, &at)
	require.ErrorIs(t, err, games.ErrInvalidParams)

	available, locked := f.balance(t, user)
	require.Equal(t, "75", available) // 100 - 10 + 15 - 10 - 10
	require.Equal(t, "10", locked)
}

func TestPlace_ConcurrentNoncesAreSequential(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "100")

	const workers = 8

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		nonces []int64
		errs   []error
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			bet, err := f.svc.Place(context.Background(), user, flip("1"))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			nonces = append(nonces, bet.Nonce)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	for i, n := range nonces {
		require.Equal(t, int64(i+1), n)
	}

	list, err := f.svc.ListByUser(t.Context(), user, 50, 0)
	require.NoError(t, err)
	require.Len(t, list, workers)

	available, locked := f.balance(t, user)
	require.Equal(t, "92", available)
	require.Equal(t, "8", locked)
}

func TestVerifyBet_AfterRotationAndReveal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "100")

	bet, err := f.svc.Place(t.Context(), user, Request{
		Game:     "diamond_hands",
		Currency: "USDC",
		Stake:    "1",
		Params:   games.Params{Picks: []int{0, 7}},
	})
	require.NoError(t, err)

	// rotating after placement does not move the bet's commitment
	_, err = f.fair.RotateSeed(t.Context(), user)
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(t.Context(), user, bet.ID)
	require.NoError(t, err)
	require.Equal(t, bet.ServerSeedHash, resolved.ServerSeedHash)

	seed, err := f.fair.RevealSeed(t.Context(), user, bet.SeedID)
	require.NoError(t, err)

	got, err := f.svc.VerifyBet(t.Context(), user, bet.ID, seed.ServerSeed)
	require.NoError(t, err)
	require.True(t, got.Valid, got.Error)
	require.Equal(t, resolved.Result.String, string(got.Outcome.Result))
	require.Equal(t, resolved.Trace.Prefix, got.Outcome.Trace.Prefix)
	require.True(t, resolved.Multiplier.Decimal.Equal(got.Outcome.Multiplier))

	wrong, err := f.svc.VerifyBet(t.Context(), user, bet.ID, "not-the-seed")
	require.NoError(t, err)
	require.False(t, wrong.Valid)
	require.Equal(t, fairness.ErrHashMismatch.Error(), wrong.Error)
}

func TestRevealSeed_RefusedWhileBetPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "100")

	bet, err := f.svc.Place(t.Context(), user, Request{Game: "to_the_moon", Currency: "USDC", Stake: "10"})
	require.NoError(t, err)

	_, err = f.fair.RevealSeed(t.Context(), user, bet.SeedID)
	require.ErrorIs(t, err, fairness.ErrPendingBets)

	// rotating retires the seed but keeps it sealed while the bet is open
	_, err = f.fair.RotateSeed(t.Context(), user)
	require.NoError(t, err)

	_, err = f.fair.RevealSeed(t.Context(), user, bet.SeedID)
	require.ErrorIs(t, err, fairness.ErrPendingBets)

	list, err := f.fair.ListSeeds(t.Context(), user, 10, 0)
	require.NoError(t, err)
	for _, s := range list {
		require.Empty(t, s.ServerSeed)
	}

	_, err = f.svc.Resolve(t.Context(), user, bet.ID)
	require.NoError(t, err)

	seed, err := f.fair.RevealSeed(t.Context(), user, bet.SeedID)
	require.NoError(t, err)
	require.Equal(t, bet.ServerSeedHash, fairness.HashServerSeed(seed.ServerSeed))
}

func TestSettle_ConcurrentResolutionsPayOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := uuid.New()
	f.fund(t, user, "100")
	f.fixDraw(rng010)

	bet, err := f.svc.Place(t.Context(), user, flip("10"))
	require.NoError(t, err)

	const workers = 10

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		resolved int
		other    []error
	)

	start := make(chan struct{})

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			var err error
			if i%2 == 0 {
				_, err = f.svc.Resolve(context.Background(), user, bet.ID)
			} else {
				_, err = f.svc.Cashout(context.Background(), user, bet.ID, nil)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyResolved):
				resolved++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, resolved)

	wins, err := f.ledger.ListEntries(t.Context(), user, entries.Filter{
		Type:  entries.TypeBetWin,
		RefID: uuid.NullUUID{UUID: bet.ID, Valid: true},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, wins, 1)

	available, locked := f.balance(t, user)
	require.Equal(t, "109.8", available)
	require.Equal(t, "0", locked)
}
