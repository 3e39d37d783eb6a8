package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // zone database for images without one

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/games"
	"gopkg.in/yaml.v3"
)

// Settlement holds the tunables that are not secrets: the game catalog,
// faucet caps and the time zone faucet days are counted in.
type Settlement struct {
	Location *time.Location
	// FaucetCaps are daily caps in human units per currency.
	FaucetCaps map[currency.Code]string
	Games      games.Catalog
}

type settlementFile struct {
	Timezone   string               `yaml:"timezone"`
	FaucetCaps map[string]string    `yaml:"faucet_caps"`
	Games      map[string]yaml.Node `yaml:"games"`
}

// DefaultSettlement is used when no file is configured.
func DefaultSettlement() Settlement {
	return Settlement{
		Location: time.UTC,
		FaucetCaps: map[currency.Code]string{
			currency.BTC:  "0.001",
			currency.ETH:  "0.01",
			currency.SOL:  "1",
			currency.USDC: "100",
			currency.USDT: "100",
		},
		Games: games.DefaultCatalog(),
	}
}

// LoadSettlement reads a YAML file on top of DefaultSettlement. An empty
// path returns the defaults. Game entries override only the keys they set.
func LoadSettlement(path string) (Settlement, error) {
	if path == "" {
		return DefaultSettlement(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Settlement{}, fmt.Errorf("read settlement config: %w", err)
	}

	return ParseSettlement(raw)
}

func ParseSettlement(raw []byte) (Settlement, error) {
	out := DefaultSettlement()

	var f settlementFile

	err := yaml.Unmarshal(raw, &f)
	if err != nil {
		return Settlement{}, fmt.Errorf("decode settlement config: %w", err)
	}

	if f.Timezone != "" {
		loc, err := time.LoadLocation(f.Timezone)
		if err != nil {
			return Settlement{}, fmt.Errorf("timezone %q: %w", f.Timezone, err)
		}

		out.Location = loc
	}

	for code, limit := range f.FaucetCaps {
		c, err := currency.Parse(code)
		if err != nil {
			return Settlement{}, fmt.Errorf("faucet cap: %w", err)
		}

		_, err = currency.ToSmallestUnits(limit, c)
		if err != nil {
			return Settlement{}, fmt.Errorf("faucet cap %s: %w", c, err)
		}

		out.FaucetCaps[c] = limit
	}

	for name, node := range f.Games {
		g, err := games.ParseGame(name)
		if err != nil {
			return Settlement{}, fmt.Errorf("games: %w", err)
		}

		rules := out.Games[g]

		err = node.Decode(&rules)
		if err != nil {
			return Settlement{}, fmt.Errorf("games: %s: %w", g, err)
		}

		out.Games[g] = rules
	}

	err = out.Games.Validate()
	if err != nil {
		return Settlement{}, errors.Join(errors.New("invalid game catalog"), err)
	}

	return out, nil
}
