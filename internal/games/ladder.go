package games

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

// Ladder climbs rungs up to TargetRung; rung i busts when
// frac(rng*(i+1)) < BustBelow.
type Ladder struct {
	Table      []decimal.Decimal
	BustBelow  decimal.Decimal
	TargetRung int
}

func buildLadder(rules Rules, p Params) (Ladder, error) {
	if len(rules.Ladder) == 0 {
		return Ladder{}, invalidf("empty ladder table")
	}

	if rules.BustBelow.IsNegative() || !rules.BustBelow.LessThan(one) {
		return Ladder{}, invalidf("bust_below %s outside [0,1)", rules.BustBelow)
	}

	target := 0
	if p.TargetRung != nil {
		target = *p.TargetRung
	}

	if target < 0 || target > len(rules.Ladder)-1 {
		return Ladder{}, invalidf("targetRung %d outside [0,%d]", target, len(rules.Ladder)-1)
	}

	return Ladder{Table: rules.Ladder, BustBelow: rules.BustBelow, TargetRung: target}, nil
}

func (Ladder) Game() Game       { return LeverageLadder }
func (Ladder) Continuous() bool { return true }

func (l Ladder) resolve(r RNG) Outcome {
	rng := r.Decimal()
	lt := &LadderTrace{TargetRung: l.TargetRung, AchievedRung: -1}

	tr := newTrace(LeverageLadder, r)
	tr.Ladder = lt

	for i := 0; i <= l.TargetRung; i++ {
		step := frac(rng.Mul(decimal.NewFromInt(int64(i + 1))))
		bust := step.LessThan(l.BustBelow)
		lt.Steps = append(lt.Steps, LadderStep{Rung: i, Step: step, Bust: bust})

		if bust {
			rung := i
			lt.BustRung = &rung

			return Outcome{Result: ResultLose, Multiplier: decimal.Zero, Reach: l.reach(lt.AchievedRung), Trace: tr}
		}

		lt.AchievedRung = i
	}

	m := l.Table[lt.AchievedRung]

	return Outcome{Result: ResultWin, Multiplier: m, Reach: m, Trace: tr}
}

func (l Ladder) reach(achieved int) decimal.Decimal {
	if achieved < 0 {
		return decimal.Zero
	}

	return l.Table[achieved]
}

// quote measures the set of draws that bust on some rung up to the target.
func (l Ladder) quote() Quote {
	type span struct{ lo, hi *big.Rat }

	b := l.BustBelow.Rat()

	var spans []span
	for i := 0; i <= l.TargetRung; i++ {
		n := big.NewRat(int64(i+1), 1)
		for j := 0; j <= i; j++ {
			lo := new(big.Rat).Quo(big.NewRat(int64(j), 1), n)
			hi := new(big.Rat).Quo(new(big.Rat).Add(big.NewRat(int64(j), 1), b), n)
			spans = append(spans, span{lo: lo, hi: hi})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].lo.Cmp(spans[j].lo) < 0 })

	bust := new(big.Rat)
	var curLo, curHi *big.Rat
	for _, s := range spans {
		if curHi != nil && s.lo.Cmp(curHi) <= 0 {
			if s.hi.Cmp(curHi) > 0 {
				curHi = s.hi
			}

			continue
		}

		if curHi != nil {
			bust.Add(bust, new(big.Rat).Sub(curHi, curLo))
		}

		curLo, curHi = s.lo, s.hi
	}

	if curHi != nil {
		bust.Add(bust, new(big.Rat).Sub(curHi, curLo))
	}

	win := new(big.Rat).Sub(big.NewRat(1, 1), bust)

	return Quote{
		Multiplier: l.Table[l.TargetRung],
		WinChance:  decimal.NewFromBigRat(win, quotePlaces),
	}
}
