package api

import (
	"time"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/games"
	"github.com/fastprodman/betsettle/internal/repos/bets"
	"github.com/fastprodman/betsettle/internal/repos/entries"
	betsvc "github.com/fastprodman/betsettle/internal/services/bets"
	"github.com/fastprodman/betsettle/internal/services/ledger"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// human renders smallest units in the currency's display form. Codes come
// from stored rows, so an unknown one is a bug and renders raw.
func human(units decimal.Decimal, code currency.Code) string {
	s, err := currency.FromSmallestUnits(units, code)
	if err != nil {
		return units.String()
	}

	return s
}

type betView struct {
	ID              uuid.UUID        `json:"id"`
	Game            games.Game       `json:"game"`
	Currency        currency.Code    `json:"currency"`
	Stake           string           `json:"stake"`
	PotentialPayout string           `json:"potentialPayout"`
	Status          bets.Status      `json:"status"`
	ClientSeed      string           `json:"clientSeed"`
	ServerSeedHash  string           `json:"serverSeedHash"`
	SeedID          uuid.UUID        `json:"seedId"`
	Nonce           int64            `json:"nonce"`
	Params          games.Params     `json:"params"`
	Result          *string          `json:"result,omitempty"`
	Multiplier      *decimal.Decimal `json:"multiplier,omitempty"`
	Payout          *string          `json:"payout,omitempty"`
	Trace           *games.Trace     `json:"trace,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	ResolvedAt      *time.Time       `json:"resolvedAt,omitempty"`
}

func newBetView(b bets.Bet) betView {
	v := betView{
		ID:              b.ID,
		Game:            b.Game,
		Currency:        b.Currency,
		Stake:           human(b.Stake, b.Currency),
		PotentialPayout: human(b.PotentialPayout, b.Currency),
		Status:          b.Status,
		ClientSeed:      b.ClientSeed,
		ServerSeedHash:  b.ServerSeedHash,
		SeedID:          b.SeedID,
		Nonce:           b.Nonce,
		Params:          b.Params,
		Trace:           b.Trace,
		CreatedAt:       b.CreatedAt,
	}

	if b.Result.Valid {
		v.Result = &b.Result.String
	}

	if b.Multiplier.Valid {
		v.Multiplier = &b.Multiplier.Decimal
	}

	if b.Payout.Valid {
		v.Payout = lo.ToPtr(human(b.Payout.Decimal, b.Currency))
	}

	if b.ResolvedAt.Valid {
		v.ResolvedAt = &b.ResolvedAt.Time
	}

	return v
}

type previewView struct {
	Game            games.Game    `json:"game"`
	Currency        currency.Code `json:"currency"`
	Stake           string        `json:"stake"`
	PotentialPayout string        `json:"potentialPayout"`
	games.Quote
	Sample games.Outcome `json:"sample"`
}

func newPreviewView(p betsvc.Preview) previewView {
	return previewView{
		Game:            p.Game,
		Currency:        p.Currency,
		Stake:           human(p.Stake, p.Currency),
		PotentialPayout: human(p.PotentialPayout, p.Currency),
		Quote:           p.Quote,
		Sample:          p.Sample,
	}
}

type balanceView struct {
	Currency  currency.Code `json:"currency"`
	Available string        `json:"available"`
	Locked    string        `json:"locked"`
	Total     string        `json:"total"`
}

func newBalanceView(b ledger.Balance) balanceView {
	return balanceView{
		Currency:  b.Currency,
		Available: human(b.Available, b.Currency),
		Locked:    human(b.Locked, b.Currency),
		Total:     human(b.Total, b.Currency),
	}
}

type entryView struct {
	ID          int64         `json:"id"`
	Currency    currency.Code `json:"currency"`
	Type        entries.Type  `json:"type"`
	Amount      string        `json:"amount"`
	LockedDelta string        `json:"lockedDelta"`
	RefID       *uuid.UUID    `json:"refId,omitempty"`
	Meta        entries.Meta  `json:"meta"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func newEntryView(e entries.Entry) entryView {
	v := entryView{
		ID:          e.ID,
		Currency:    e.Currency,
		Type:        e.Type,
		Amount:      human(e.Amount, e.Currency),
		LockedDelta: human(e.LockedDelta, e.Currency),
		Meta:        e.Meta,
		CreatedAt:   e.CreatedAt,
	}

	if e.RefID.Valid {
		v.RefID = &e.RefID.UUID
	}

	return v
}
