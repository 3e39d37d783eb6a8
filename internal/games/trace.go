package games

import "github.com/shopspring/decimal"

// TraceVersion is bumped whenever a trace section changes shape.
const TraceVersion = 1

// Trace records every intermediate value of a resolution so a third party
// can audit it. Exactly one game section is set.
type Trace struct {
	Version int             `json:"version"`
	Game    Game            `json:"game"`
	RNG     decimal.Decimal `json:"rng"`
	Prefix  uint32          `json:"prefix"`

	Threshold *ThresholdTrace `json:"threshold,omitempty"`
	Ladder    *LadderTrace    `json:"ladder,omitempty"`
	StopLoss  *StopLossTrace  `json:"stopLoss,omitempty"`
	Crash     *CrashTrace     `json:"crash,omitempty"`
	Mines     *MinesTrace     `json:"mines,omitempty"`
}

type ThresholdTrace struct {
	WinBelow   decimal.Decimal `json:"winBelow"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type LadderStep struct {
	Rung int             `json:"rung"`
	Step decimal.Decimal `json:"step"`
	Bust bool            `json:"bust"`
}

type LadderTrace struct {
	TargetRung   int          `json:"targetRung"`
	Steps        []LadderStep `json:"steps"`
	AchievedRung int          `json:"achievedRung"` // -1 when rung 0 busts
	BustRung     *int         `json:"bustRung,omitempty"`
}

type StopLossTrace struct {
	Distance   decimal.Decimal `json:"distance"`
	Multiplier decimal.Decimal `json:"multiplier"`
	WinChance  decimal.Decimal `json:"winChance"`
}

type CrashTrace struct {
	Cap        decimal.Decimal `json:"cap"`
	Steps      int             `json:"steps"`
	CrashPoint decimal.Decimal `json:"crashPoint"`
	Crashed    bool            `json:"crashed"`
}

type MinesTrace struct {
	Grid      int   `json:"grid"`
	Positions []int `json:"positions"`
	Picks     []int `json:"picks"`
	Revealed  int   `json:"revealed"`
	HitPick   *int  `json:"hitPick,omitempty"`
}

func newTrace(g Game, r RNG) Trace {
	return Trace{
		Version: TraceVersion,
		Game:    g,
		RNG:     r.Decimal(),
		Prefix:  r.Prefix,
	}
}
