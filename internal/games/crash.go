package games

import "github.com/shopspring/decimal"

// Crash walks the multiplier up from 1.00 in hundredths. At multiplier m
// the walk crashes when frac(rng*m) < 0.01. Both sides are scaled by
// 2^32*100 so the walk runs on integers.
type Crash struct {
	game Game
	Cap  decimal.Decimal
	edge decimal.Decimal
}

const crashScale = 100

func buildCrash(g Game, rules Rules) (Crash, error) {
	limit := rules.Cap.Shift(2)
	if !limit.IsInteger() || limit.LessThanOrEqual(decimal.NewFromInt(crashScale)) {
		return Crash{}, invalidf("cap %s must be above 1 in hundredths", rules.Cap)
	}

	// the integer walk multiplies a 32-bit prefix by the step; keep it in uint64
	if limit.GreaterThan(decimal.NewFromInt(1 << 30)) {
		return Crash{}, invalidf("cap %s too large", rules.Cap)
	}

	return Crash{game: g, Cap: rules.Cap, edge: rules.HouseEdge()}, nil
}

func (c Crash) Game() Game       { return c.game }
func (c Crash) Continuous() bool { return true }

func (c Crash) resolve(r RNG) Outcome {
	limit := uint64(c.Cap.Shift(2).IntPart())
	modulus := RNGDivisor * crashScale
	p := uint64(r.Prefix)

	ct := &CrashTrace{Cap: c.Cap}
	tr := newTrace(c.game, r)
	tr.Crash = ct

	for k := uint64(crashScale); k < limit; k++ {
		ct.Steps++

		if (p*k)%modulus < RNGDivisor {
			ct.Crashed = true
			ct.CrashPoint = decimal.New(int64(k), -2)

			reach := decimal.Zero
			if k > crashScale {
				reach = decimal.New(int64(k-1), -2)
			}

			return Outcome{Result: ResultCrash, Multiplier: decimal.Zero, Reach: reach, Trace: tr}
		}
	}

	ct.CrashPoint = c.Cap

	return Outcome{Result: ResultContinue, Multiplier: c.Cap, Reach: c.Cap, Trace: tr}
}

// quote reports the conventional crash-curve chance of reaching the cap,
// (1 - edge) / cap. It is informational only; resolve never consults it.
func (c Crash) quote() Quote {
	return Quote{
		Multiplier: c.Cap,
		WinChance:  one.Sub(c.edge).DivRound(c.Cap, quotePlaces),
	}
}
