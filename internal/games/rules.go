package games

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Rules are the tunable bounds of one game. A bet stores the rules it was
// placed under, so catalog edits never reach bets that already exist.
// Only the fields relevant to the game's variant are read.
type Rules struct {
	HouseEdgeBps int `yaml:"house_edge_bps" json:"houseEdgeBps"`

	// threshold games
	WinBelow   decimal.Decimal `yaml:"win_below" json:"winBelow,omitempty"`
	Multiplier decimal.Decimal `yaml:"multiplier" json:"multiplier,omitempty"`

	// leverage_ladder
	Ladder    []decimal.Decimal `yaml:"ladder" json:"ladder,omitempty"`
	BustBelow decimal.Decimal   `yaml:"bust_below" json:"bustBelow,omitempty"`

	// stop_loss_roulette
	StopLossBase    decimal.Decimal `yaml:"stop_loss_base" json:"stopLossBase,omitempty"`
	MaxMultiplier   decimal.Decimal `yaml:"max_multiplier" json:"maxMultiplier,omitempty"`
	DefaultDistance decimal.Decimal `yaml:"default_distance" json:"defaultDistance,omitempty"`

	// freeze_the_bag, to_the_moon
	Cap decimal.Decimal `yaml:"cap" json:"cap,omitempty"`

	// diamond_hands
	Grid          int             `yaml:"grid" json:"grid,omitempty"`
	DefaultMines  int             `yaml:"default_mines" json:"defaultMines,omitempty"`
	PickIncrement decimal.Decimal `yaml:"pick_increment" json:"pickIncrement,omitempty"`
	Stride        decimal.Decimal `yaml:"stride" json:"stride,omitempty"`
}

// HouseEdge returns the edge as a fraction.
func (r Rules) HouseEdge() decimal.Decimal {
	return decimal.New(int64(r.HouseEdgeBps), -4)
}

// Catalog holds the rules of every game.
type Catalog map[Game]Rules

// Rules returns a copy of the rules of g.
func (c Catalog) Rules(g Game) (Rules, error) {
	r, ok := c[g]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %q", ErrUnknownGame, g)
	}

	r.Ladder = append([]decimal.Decimal(nil), r.Ladder...)

	return r, nil
}

// Validate checks every entry of the catalog against the constraints its
// variant needs to resolve.
func (c Catalog) Validate() error {
	for _, g := range All {
		r, ok := c[g]
		if !ok {
			return fmt.Errorf("catalog: missing game %q", g)
		}

		if _, err := Build(g, r, Params{}); err != nil {
			return fmt.Errorf("catalog: %s: %w", g, err)
		}
	}

	return nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultCatalog returns the built-in rules.
func DefaultCatalog() Catalog {
	threshold := func(edge int, winBelow, mult string) Rules {
		return Rules{HouseEdgeBps: edge, WinBelow: d(winBelow), Multiplier: d(mult)}
	}

	crash := func(limit string) Rules {
		return Rules{HouseEdgeBps: 100, Cap: d(limit)}
	}

	return Catalog{
		CandleFlip:          threshold(199, "0.495", "1.98"),
		PumpOrDump:          threshold(199, "0.495", "1.98"),
		SupportOrResistance: threshold(203, "0.485", "2.02"),
		BullVsBearBattle:    threshold(200, "0.49", "2.0"),
		LeverageLadder: {
			HouseEdgeBps: 100,
			Ladder: lo.Map([]string{"1.30", "1.69", "2.19", "2.85", "3.70", "4.80"},
				func(s string, _ int) decimal.Decimal { return d(s) }),
			BustBelow: d("0.10"),
		},
		StopLossRoulette: {
			HouseEdgeBps:    100,
			StopLossBase:    d("0.5"),
			MaxMultiplier:   d("4.0"),
			DefaultDistance: d("0.1"),
		},
		FreezeTheBag: crash("100"),
		ToTheMoon:    crash("1000"),
		DiamondHands: {
			HouseEdgeBps:  100,
			Grid:          25,
			DefaultMines:  3,
			PickIncrement: d("0.1"),
			Stride:        d("1.618"),
		},
	}
}
