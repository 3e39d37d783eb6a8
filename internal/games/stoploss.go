package games

import "github.com/shopspring/decimal"

// multiplierPlaces bounds the precision of computed multipliers.
const multiplierPlaces = 4

// StopLoss pays min(Max, 1 + Base/Distance) when rng*multiplier < 1.
type StopLoss struct {
	Distance   decimal.Decimal
	Multiplier decimal.Decimal
}

func buildStopLoss(rules Rules, p Params) (StopLoss, error) {
	if !rules.StopLossBase.IsPositive() || !rules.MaxMultiplier.GreaterThan(one) {
		return StopLoss{}, invalidf("stop loss base %s / max %s", rules.StopLossBase, rules.MaxMultiplier)
	}

	dist := rules.DefaultDistance
	if p.StopLossDistance != nil {
		dist = *p.StopLossDistance
	}

	if !dist.IsPositive() {
		return StopLoss{}, invalidf("stopLossDistance %s must be positive", dist)
	}

	raw := one.Add(rules.StopLossBase.DivRound(dist, multiplierPlaces+4))
	m := decimal.Min(rules.MaxMultiplier, raw).Truncate(multiplierPlaces)

	return StopLoss{Distance: dist, Multiplier: m}, nil
}

func (StopLoss) Game() Game       { return StopLossRoulette }
func (StopLoss) Continuous() bool { return false }

func (s StopLoss) winChance() decimal.Decimal {
	return one.DivRound(s.Multiplier, quotePlaces)
}

func (s StopLoss) resolve(r RNG) Outcome {
	tr := newTrace(StopLossRoulette, r)
	tr.StopLoss = &StopLossTrace{Distance: s.Distance, Multiplier: s.Multiplier, WinChance: s.winChance()}

	// rng < 1/m, compared without dividing
	if r.Decimal().Mul(s.Multiplier).LessThan(one) {
		return Outcome{Result: ResultWin, Multiplier: s.Multiplier, Reach: s.Multiplier, Trace: tr}
	}

	return Outcome{Result: ResultLose, Multiplier: decimal.Zero, Reach: decimal.Zero, Trace: tr}
}

func (s StopLoss) quote() Quote {
	return Quote{Multiplier: s.Multiplier, WinChance: s.winChance()}
}
