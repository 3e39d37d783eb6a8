package games

import "github.com/shopspring/decimal"

// Threshold wins when the draw is strictly below WinBelow.
type Threshold struct {
	game       Game
	WinBelow   decimal.Decimal
	Multiplier decimal.Decimal
}

func buildThreshold(g Game, rules Rules) (Threshold, error) {
	if !rules.WinBelow.IsPositive() || rules.WinBelow.GreaterThan(one) {
		return Threshold{}, invalidf("win_below %s outside (0,1]", rules.WinBelow)
	}

	if !rules.Multiplier.GreaterThan(one) {
		return Threshold{}, invalidf("multiplier %s must exceed 1", rules.Multiplier)
	}

	return Threshold{game: g, WinBelow: rules.WinBelow, Multiplier: rules.Multiplier}, nil
}

func (t Threshold) Game() Game       { return t.game }
func (t Threshold) Continuous() bool { return false }

func (t Threshold) resolve(r RNG) Outcome {
	tr := newTrace(t.game, r)
	tr.Threshold = &ThresholdTrace{WinBelow: t.WinBelow, Multiplier: t.Multiplier}

	if r.Decimal().LessThan(t.WinBelow) {
		return Outcome{Result: ResultWin, Multiplier: t.Multiplier, Reach: t.Multiplier, Trace: tr}
	}

	return Outcome{Result: ResultLose, Multiplier: decimal.Zero, Reach: decimal.Zero, Trace: tr}
}

func (t Threshold) quote() Quote {
	return Quote{Multiplier: t.Multiplier, WinChance: t.WinBelow}
}
