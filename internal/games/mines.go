package games

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// minesStatePlaces keeps the placement recurrence at a fixed precision.
const minesStatePlaces = 32

// minesDrawFactor bounds the recurrence to grid*minesDrawFactor draws.
const minesDrawFactor = 16

// Mines hides Count mines on a Grid and walks the player's picks in order.
type Mines struct {
	Grid      int
	Count     int
	Picks     []int
	Increment decimal.Decimal
	Stride    decimal.Decimal
}

func buildMines(rules Rules, p Params) (Mines, error) {
	if rules.Grid < 2 {
		return Mines{}, invalidf("grid %d too small", rules.Grid)
	}

	if !rules.PickIncrement.IsPositive() || !rules.Stride.IsPositive() {
		return Mines{}, invalidf("pick increment %s / stride %s", rules.PickIncrement, rules.Stride)
	}

	count := rules.DefaultMines
	if p.Mines != nil {
		count = *p.Mines
	}

	if count < 1 || count > rules.Grid-1 {
		return Mines{}, invalidf("mines %d outside [1,%d]", count, rules.Grid-1)
	}

	if len(p.Picks) > rules.Grid-count {
		return Mines{}, invalidf("%d picks exceed %d safe cells", len(p.Picks), rules.Grid-count)
	}

	seen := make(map[int]struct{}, len(p.Picks))
	for _, pick := range p.Picks {
		if pick < 0 || pick > rules.Grid-1 {
			return Mines{}, invalidf("pick %d outside [0,%d]", pick, rules.Grid-1)
		}

		if _, dup := seen[pick]; dup {
			return Mines{}, invalidf("pick %d repeated", pick)
		}

		seen[pick] = struct{}{}
	}

	return Mines{
		Grid:      rules.Grid,
		Count:     count,
		Picks:     append([]int(nil), p.Picks...),
		Increment: rules.PickIncrement,
		Stride:    rules.Stride,
	}, nil
}

func (Mines) Game() Game       { return DiamondHands }
func (Mines) Continuous() bool { return false }

// MinePositions returns Count distinct cells in placement order. The
// recurrence state = frac(state*Stride) supplies cells until it either
// fills the board or runs out of draws; any remaining mines are placed on
// the next free cells after the last drawn one.
func (m Mines) MinePositions(r RNG) []int {
	grid := decimal.NewFromInt(int64(m.Grid))
	taken := make([]bool, m.Grid)
	positions := make([]int, 0, m.Count)

	state := r.Decimal()
	last := 0
	for draw := 0; draw < m.Grid*minesDrawFactor && len(positions) < m.Count; draw++ {
		idx := int(state.Mul(grid).Floor().IntPart())
		last = idx

		if !taken[idx] {
			taken[idx] = true
			positions = append(positions, idx)
		}

		state = frac(state.Mul(m.Stride)).Truncate(minesStatePlaces)
	}

	for idx := last; len(positions) < m.Count; {
		idx = (idx + 1) % m.Grid
		if !taken[idx] {
			taken[idx] = true
			positions = append(positions, idx)
		}
	}

	return positions
}

func (m Mines) resolve(r RNG) Outcome {
	positions := m.MinePositions(r)

	mines := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		mines[p] = struct{}{}
	}

	mt := &MinesTrace{Grid: m.Grid, Positions: positions, Picks: m.Picks}
	tr := newTrace(DiamondHands, r)
	tr.Mines = mt

	mult := one
	for _, pick := range m.Picks {
		if _, hit := mines[pick]; hit {
			p := pick
			mt.HitPick = &p

			return Outcome{Result: ResultLose, Multiplier: decimal.Zero, Reach: mult, Trace: tr}
		}

		mt.Revealed++
		mult = mult.Add(m.Increment)
	}

	return Outcome{Result: ResultWin, Multiplier: mult, Reach: mult, Trace: tr}
}

// quote assumes uniformly placed mines: the chance that k picks all avoid
// them is C(grid-mines, k) / C(grid, k).
func (m Mines) quote() Quote {
	win := big.NewRat(1, 1)
	for i := range m.Picks {
		win.Mul(win, big.NewRat(int64(m.Grid-m.Count-i), int64(m.Grid-i)))
	}

	return Quote{
		Multiplier: one.Add(m.Increment.Mul(decimal.NewFromInt(int64(len(m.Picks))))),
		WinChance:  decimal.NewFromBigRat(win, quotePlaces),
	}
}
