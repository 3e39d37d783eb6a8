// Package games maps a fairness-derived draw onto a game result.
//
// Player parameters and the game's rules are compiled by Build into one of a
// closed set of variants (Threshold, Ladder, StopLoss, Crash, Mines). Every
// variant implements the unexported resolve method, so Resolve never needs a
// runtime default case. All functions here are pure.
package games

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownGame   = errors.New("unknown game")
	ErrInvalidParams = errors.New("invalid game params")
)

type Game string

const (
	CandleFlip          Game = "candle_flip"
	PumpOrDump          Game = "pump_or_dump"
	SupportOrResistance Game = "support_or_resistance"
	BullVsBearBattle    Game = "bull_vs_bear_battle"
	LeverageLadder      Game = "leverage_ladder"
	StopLossRoulette    Game = "stop_loss_roulette"
	FreezeTheBag        Game = "freeze_the_bag"
	ToTheMoon           Game = "to_the_moon"
	DiamondHands        Game = "diamond_hands"
)

// All lists every game id in catalog order.
var All = []Game{
	CandleFlip,
	PumpOrDump,
	SupportOrResistance,
	BullVsBearBattle,
	LeverageLadder,
	StopLossRoulette,
	FreezeTheBag,
	ToTheMoon,
	DiamondHands,
}

// ParseGame validates a game identifier.
func ParseGame(s string) (Game, error) {
	g := Game(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if g == known {
			return g, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
}

// Params are the player-supplied knobs. Nil means "use the default".
type Params struct {
	TargetRung       *int             `json:"targetRung,omitempty"`
	StopLossDistance *decimal.Decimal `json:"stopLossDistance,omitempty"`
	Mines            *int             `json:"mines,omitempty"`
	Picks            []int            `json:"picks,omitempty"`
}

type Result string

const (
	ResultWin      Result = "win"
	ResultLose     Result = "lose"
	ResultCrash    Result = "crash"
	ResultContinue Result = "continue"
)

// Outcome is the resolved game. Reach is the highest multiplier that was
// safely attained before the game ended; cash-out settles against it.
type Outcome struct {
	Result     Result          `json:"result"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Reach      decimal.Decimal `json:"reach"`
	Trace      Trace           `json:"trace"`
}

// Won reports whether the outcome pays out.
func (o Outcome) Won() bool {
	return o.Result == ResultWin || o.Result == ResultContinue
}

// Variant is a compiled game: rules and params, ready to resolve.
type Variant interface {
	Game() Game
	// Continuous reports whether a player may cash out before the end.
	Continuous() bool

	resolve(r RNG) Outcome
	quote() Quote
}

// Resolve runs the variant's algorithm against r.
func Resolve(v Variant, r RNG) Outcome {
	return v.resolve(r)
}

// Build compiles a game, its rules and the player params into a variant.
// Defaults only fill omitted params; out-of-range values are rejected.
func Build(g Game, rules Rules, p Params) (Variant, error) {
	var (
		v   Variant
		err error
	)

	switch g {
	case CandleFlip, PumpOrDump, SupportOrResistance, BullVsBearBattle:
		v, err = buildThreshold(g, rules)
	case LeverageLadder:
		v, err = buildLadder(rules, p)
	case StopLossRoulette:
		v, err = buildStopLoss(rules, p)
	case FreezeTheBag, ToTheMoon:
		v, err = buildCrash(g, rules)
	case DiamondHands:
		v, err = buildMines(rules, p)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, g)
	}

	if err != nil {
		return nil, err
	}

	return v, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
