package games

import "github.com/shopspring/decimal"

const quotePlaces = 8

// Quote is the nominal shape of a bet before it is placed.
type Quote struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	WinChance  decimal.Decimal `json:"winChance"`
	HouseEdge  decimal.Decimal `json:"houseEdge"`
}

// QuoteFor prices v under rules without drawing anything.
func QuoteFor(v Variant, rules Rules) Quote {
	q := v.quote()
	q.HouseEdge = rules.HouseEdge()

	return q
}
