package entries

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const MetaVersion = 1

// Meta is the audit context of an entry. At most one section is set and
// the section matches the entry type.
type Meta struct {
	Version  int           `json:"version"`
	Bet      *BetMeta      `json:"bet,omitempty"`
	Faucet   *FaucetMeta   `json:"faucet,omitempty"`
	Transfer *TransferMeta `json:"transfer,omitempty"`
}

type BetMeta struct {
	Game       string           `json:"game"`
	Nonce      int64            `json:"nonce"`
	Stake      decimal.Decimal  `json:"stake"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	Status     string           `json:"status,omitempty"`
}

type FaucetMeta struct {
	Day string `json:"day"` // local day the cap is counted against
}

type TransferMeta struct {
	Reference string `json:"reference"`
}

func BetContext(b BetMeta) Meta { return Meta{Version: MetaVersion, Bet: &b} }
func FaucetContext(f FaucetMeta) Meta { return Meta{Version: MetaVersion, Faucet: &f} }
func TransferContext(ref string) Meta { return Meta{Version: MetaVersion, Transfer: &TransferMeta{Reference: ref}} }

func (m Meta) Value() (driver.Value, error) {
	if m.Version == 0 {
		m.Version = MetaVersion
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}

	return string(b), nil
}

func (m *Meta) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*m = Meta{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan meta: unsupported type %T", src)
	}

	err := json.Unmarshal(raw, m)
	if err != nil {
		return fmt.Errorf("unmarshal meta: %w", err)
	}

	return nil
}
