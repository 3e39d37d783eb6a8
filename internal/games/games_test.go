package games

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func mustBuild(t *testing.T, g Game, p Params) Variant {
	t.Helper()

	rules, err := DefaultCatalog().Rules(g)
	require.NoError(t, err)

	v, err := Build(g, rules, p)
	require.NoError(t, err)

	return v
}

func rngOf(t *testing.T, s string) RNG {
	t.Helper()

	r, err := RNGFromDecimal(dec(s))
	require.NoError(t, err)

	return r
}

func TestParseGame(t *testing.T) {
	t.Parallel()

	for _, g := range All {
		got, err := ParseGame(string(g))
		require.NoError(t, err)
		require.Equal(t, g, got)
	}

	_, err := ParseGame("roulette")
	require.ErrorIs(t, err, ErrUnknownGame)

	_, err = Build(Game("roulette"), Rules{}, Params{})
	require.ErrorIs(t, err, ErrUnknownGame)
}

func TestDefaultCatalogIsValid(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	require.NoError(t, c.Validate())

	delete(c, DiamondHands)
	require.Error(t, c.Validate())
}

func TestCatalogRulesAreCopies(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	r, err := c.Rules(LeverageLadder)
	require.NoError(t, err)

	r.Ladder[0] = dec("99")
	again, err := c.Rules(LeverageLadder)
	require.NoError(t, err)
	require.True(t, again.Ladder[0].Equal(dec("1.30")))
}

func TestThresholdBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		game   Game
		prefix uint32
		want   Result
		mult   string
	}{
		{game: CandleFlip, prefix: 2126008811, want: ResultWin, mult: "1.98"},
		{game: CandleFlip, prefix: 2126008812, want: ResultLose, mult: "0"},
		{game: PumpOrDump, prefix: 2126008811, want: ResultWin, mult: "1.98"},
		{game: PumpOrDump, prefix: 2126008812, want: ResultLose, mult: "0"},
		{game: BullVsBearBattle, prefix: 2104533975, want: ResultWin, mult: "2"},
		{game: BullVsBearBattle, prefix: 2104533976, want: ResultLose, mult: "0"},
		{game: SupportOrResistance, prefix: 2083059138, want: ResultWin, mult: "2.02"},
		{game: SupportOrResistance, prefix: 2083059139, want: ResultLose, mult: "0"},
		{game: CandleFlip, prefix: 0, want: ResultWin, mult: "1.98"},
		{game: CandleFlip, prefix: ^uint32(0), want: ResultLose, mult: "0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.game), func(t *testing.T) {
			t.Parallel()

			out := Resolve(mustBuild(t, tt.game, Params{}), RNG{Prefix: tt.prefix})
			require.Equal(t, tt.want, out.Result)
			require.True(t, out.Multiplier.Equal(dec(tt.mult)), "multiplier %s", out.Multiplier)
			require.NotNil(t, out.Trace.Threshold)
			require.Equal(t, TraceVersion, out.Trace.Version)
		})
	}
}

func TestThresholdExactBoundary(t *testing.T) {
	t.Parallel()

	v, err := Build(CandleFlip, Rules{WinBelow: dec("0.5"), Multiplier: dec("2")}, Params{})
	require.NoError(t, err)

	require.Equal(t, ResultWin, Resolve(v, RNG{Prefix: 1<<31 - 1}).Result)
	require.Equal(t, ResultLose, Resolve(v, RNG{Prefix: 1 << 31}).Result)
}

func TestLadder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rng      string
		target   *int
		want     Result
		mult     string
		achieved int
		bustRung *int
	}{
		{name: "rung0_bust", rng: "0.05", target: nil, want: ResultLose, mult: "0", achieved: -1, bustRung: ptr(0)},
		{name: "rung0_win", rng: "0.5", target: ptr(0), want: ResultWin, mult: "1.30", achieved: 0},
		{name: "bust_at_rung1", rng: "0.5", target: ptr(2), want: ResultLose, mult: "0", achieved: 0, bustRung: ptr(1)},
		{name: "reach_rung2", rng: "0.3", target: ptr(2), want: ResultWin, mult: "2.19", achieved: 2},
		{name: "top_rung", rng: "0.3", target: ptr(5), want: ResultWin, mult: "4.80", achieved: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := Resolve(mustBuild(t, LeverageLadder, Params{TargetRung: tt.target}), rngOf(t, tt.rng))
			require.Equal(t, tt.want, out.Result)
			require.True(t, out.Multiplier.Equal(dec(tt.mult)), "multiplier %s", out.Multiplier)
			require.Equal(t, tt.achieved, out.Trace.Ladder.AchievedRung)
			require.Equal(t, tt.bustRung, out.Trace.Ladder.BustRung)
		})
	}
}

func TestLadderTargetZeroNeverPassesRungZero(t *testing.T) {
	t.Parallel()

	v := mustBuild(t, LeverageLadder, Params{})
	for p := uint32(0); p < 1<<32-1<<26; p += 1 << 26 {
		out := Resolve(v, RNG{Prefix: p})
		require.LessOrEqual(t, out.Trace.Ladder.AchievedRung, 0)
		require.Len(t, out.Trace.Ladder.Steps, 1)
	}
}

func TestLadderRejectsOutOfRangeTarget(t *testing.T) {
	t.Parallel()

	rules, err := DefaultCatalog().Rules(LeverageLadder)
	require.NoError(t, err)

	for _, target := range []int{-1, 6, 100} {
		_, err := Build(LeverageLadder, rules, Params{TargetRung: ptr(target)})
		require.ErrorIs(t, err, ErrInvalidParams, "target %d", target)
	}
}

func TestStopLoss(t *testing.T) {
	t.Parallel()

	def := mustBuild(t, StopLossRoulette, Params{}).(StopLoss)
	require.True(t, def.Multiplier.Equal(dec("4")))
	require.Equal(t, ResultWin, Resolve(def, RNG{Prefix: 1<<30 - 1}).Result)
	require.Equal(t, ResultLose, Resolve(def, RNG{Prefix: 1 << 30}).Result)

	half := mustBuild(t, StopLossRoulette, Params{StopLossDistance: ptr(dec("0.5"))}).(StopLoss)
	require.True(t, half.Multiplier.Equal(dec("2")))
	out := Resolve(half, RNG{Prefix: 1<<31 - 1})
	require.Equal(t, ResultWin, out.Result)
	require.True(t, out.Multiplier.Equal(dec("2")))
	require.True(t, out.Trace.StopLoss.WinChance.Equal(dec("0.5")))
	require.Equal(t, ResultLose, Resolve(half, RNG{Prefix: 1 << 31}).Result)

	third := mustBuild(t, StopLossRoulette, Params{StopLossDistance: ptr(dec("0.3"))}).(StopLoss)
	require.Equal(t, "2.6666", third.Multiplier.String())

	rules, err := DefaultCatalog().Rules(StopLossRoulette)
	require.NoError(t, err)
	for _, dist := range []string{"0", "-0.1"} {
		_, err := Build(StopLossRoulette, rules, Params{StopLossDistance: ptr(dec(dist))})
		require.ErrorIs(t, err, ErrInvalidParams)
	}
}

func TestCrash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		game  Game
		rng   string
		want  Result
		point string
		reach string
	}{
		{name: "crash_at_start", game: FreezeTheBag, rng: "0", want: ResultCrash, point: "1", reach: "0"},
		{name: "crash_at_two", game: FreezeTheBag, rng: "0.5", want: ResultCrash, point: "2", reach: "1.99"},
		{name: "crash_at_1.67", game: ToTheMoon, rng: "0.6", want: ResultCrash, point: "1.67", reach: "1.66"},
		{name: "crash_at_10.01", game: FreezeTheBag, rng: "0.1", want: ResultCrash, point: "10.01", reach: "10"},
		{name: "crash_at_1.01", game: ToTheMoon, rng: "0.999", want: ResultCrash, point: "1.01", reach: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := Resolve(mustBuild(t, tt.game, Params{}), rngOf(t, tt.rng))
			require.Equal(t, tt.want, out.Result)
			require.True(t, out.Multiplier.IsZero())
			require.True(t, out.Trace.Crash.CrashPoint.Equal(dec(tt.point)), "crash point %s", out.Trace.Crash.CrashPoint)
			require.True(t, out.Reach.Equal(dec(tt.reach)), "reach %s", out.Reach)
			require.False(t, out.Won())
		})
	}
}

func TestCrashReachesCap(t *testing.T) {
	t.Parallel()

	v, err := Build(FreezeTheBag, Rules{Cap: dec("2")}, Params{})
	require.NoError(t, err)

	out := Resolve(v, rngOf(t, "0.3"))
	require.Equal(t, ResultContinue, out.Result)
	require.True(t, out.Multiplier.Equal(dec("2")))
	require.True(t, out.Won())
	require.Equal(t, 100, out.Trace.Crash.Steps)

	_, err = Build(FreezeTheBag, Rules{Cap: dec("1")}, Params{})
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = Build(FreezeTheBag, Rules{Cap: dec("1.005")}, Params{})
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestMinePositions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rng   string
		mines int
		want  []int
	}{
		{rng: "0.1", mines: 3, want: []int{2, 4, 6}},
		{rng: "0.6", mines: 3, want: []int{14, 24, 23}},
		{rng: "0.5", mines: 3, want: []int{12, 20, 7}},
		{rng: "0.05", mines: 3, want: []int{1, 2, 3}},
		// a zero state never moves; remaining cells come from scanning forward
		{rng: "0", mines: 3, want: []int{0, 1, 2}},
	}

	for _, tt := range tests {
		m := mustBuild(t, DiamondHands, Params{Mines: ptr(tt.mines)}).(Mines)
		require.Equal(t, tt.want, m.MinePositions(rngOf(t, tt.rng)), "rng %s", tt.rng)
	}
}

func TestMinePositionsAreDistinct(t *testing.T) {
	t.Parallel()

	for _, count := range []int{1, 3, 12, 24} {
		m := mustBuild(t, DiamondHands, Params{Mines: ptr(count)}).(Mines)

		for p := uint32(0); p < 1<<32-1<<27; p += 1 << 27 {
			positions := m.MinePositions(RNG{Prefix: p})
			require.Len(t, positions, count)

			seen := map[int]bool{}
			for _, pos := range positions {
				require.False(t, seen[pos], "duplicate %d", pos)
				require.GreaterOrEqual(t, pos, 0)
				require.Less(t, pos, 25)
				seen[pos] = true
			}
		}
	}
}

func TestDiamondHands(t *testing.T) {
	t.Parallel()

	r := rngOf(t, "0.1") // mines at 2, 4, 6

	out := Resolve(mustBuild(t, DiamondHands, Params{Picks: []int{0, 1, 3}}), r)
	require.Equal(t, ResultWin, out.Result)
	require.True(t, out.Multiplier.Equal(dec("1.3")))
	require.Equal(t, 3, out.Trace.Mines.Revealed)

	out = Resolve(mustBuild(t, DiamondHands, Params{Picks: []int{0, 4, 1}}), r)
	require.Equal(t, ResultLose, out.Result)
	require.True(t, out.Multiplier.IsZero())
	require.Equal(t, ptr(4), out.Trace.Mines.HitPick)
	require.Equal(t, 1, out.Trace.Mines.Revealed)

	out = Resolve(mustBuild(t, DiamondHands, Params{}), r)
	require.Equal(t, ResultWin, out.Result)
	require.True(t, out.Multiplier.Equal(dec("1")))
}

func TestDiamondHandsRejectsBadParams(t *testing.T) {
	t.Parallel()

	rules, err := DefaultCatalog().Rules(DiamondHands)
	require.NoError(t, err)

	tests := []struct {
		name string
		p    Params
	}{
		{name: "negative_mines", p: Params{Mines: ptr(-1)}},
		{name: "zero_mines", p: Params{Mines: ptr(0)}},
		{name: "full_board", p: Params{Mines: ptr(25)}},
		{name: "pick_negative", p: Params{Picks: []int{-1}}},
		{name: "pick_off_board", p: Params{Picks: []int{25}}},
		{name: "pick_repeated", p: Params{Picks: []int{3, 3}}},
		{name: "too_many_picks", p: Params{Mines: ptr(24), Picks: []int{0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Build(DiamondHands, rules, tt.p)
			require.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()

	tests := []struct {
		name   string
		game   Game
		params Params
		mult   string
		chance string
		edge   string
	}{
		{name: "candle_flip", game: CandleFlip, mult: "1.98", chance: "0.495", edge: "0.0199"},
		{name: "ladder_rung0", game: LeverageLadder, mult: "1.30", chance: "0.9", edge: "0.01"},
		{name: "ladder_rung1", game: LeverageLadder, params: Params{TargetRung: ptr(1)}, mult: "1.69", chance: "0.85", edge: "0.01"},
		{name: "stop_loss", game: StopLossRoulette, params: Params{StopLossDistance: ptr(dec("0.5"))}, mult: "2", chance: "0.5", edge: "0.01"},
		{name: "crash", game: FreezeTheBag, mult: "100", chance: "0.0099", edge: "0.01"},
		{name: "mines_two_picks", game: DiamondHands, params: Params{Picks: []int{0, 1}}, mult: "1.2", chance: "0.77", edge: "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rules, err := c.Rules(tt.game)
			require.NoError(t, err)

			v, err := Build(tt.game, rules, tt.params)
			require.NoError(t, err)

			q := QuoteFor(v, rules)
			require.True(t, q.Multiplier.Equal(dec(tt.mult)), "multiplier %s", q.Multiplier)
			require.True(t, q.WinChance.Equal(dec(tt.chance)), "win chance %s", q.WinChance)
			require.True(t, q.HouseEdge.Equal(dec(tt.edge)), "house edge %s", q.HouseEdge)
		})
	}
}

func TestContinuousGames(t *testing.T) {
	t.Parallel()

	continuous := map[Game]bool{LeverageLadder: true, FreezeTheBag: true, ToTheMoon: true}
	for _, g := range All {
		require.Equal(t, continuous[g], mustBuild(t, g, Params{}).Continuous(), "game %s", g)
	}
}
