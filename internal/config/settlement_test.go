package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fastprodman/betsettle/internal/currency"
	"github.com/fastprodman/betsettle/internal/games"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseSettlementOverrides(t *testing.T) {
	t.Parallel()

	s, err := ParseSettlement([]byte(`
timezone: Europe/Vilnius
faucet_caps:
  usdc: "250"
games:
  candle_flip:
    house_edge_bps: 150
  leverage_ladder:
    ladder: ["1.5", "2.0"]
  to_the_moon:
    cap: "500"
`))
	require.NoError(t, err)

	require.Equal(t, "Europe/Vilnius", s.Location.String())
	require.Equal(t, "250", s.FaucetCaps[currency.USDC])
	require.Equal(t, "0.001", s.FaucetCaps[currency.BTC])

	flip := s.Games[games.CandleFlip]
	require.Equal(t, 150, flip.HouseEdgeBps)
	require.True(t, flip.WinBelow.Equal(decimal.RequireFromString("0.495")), "untouched keys keep defaults")

	ladder := s.Games[games.LeverageLadder]
	require.Len(t, ladder.Ladder, 2)
	require.True(t, ladder.BustBelow.Equal(decimal.RequireFromString("0.1")))

	require.True(t, s.Games[games.ToTheMoon].Cap.Equal(decimal.NewFromInt(500)))
	require.True(t, s.Games[games.FreezeTheBag].Cap.Equal(decimal.NewFromInt(100)))
}

func TestParseSettlementRejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown_game":     "games:\n  roulette:\n    house_edge_bps: 1\n",
		"bad_timezone":     "timezone: Mars/Olympus\n",
		"bad_cap":          "faucet_caps:\n  USDC: \"-5\"\n",
		"unknown_currency": "faucet_caps:\n  DOGE: \"5\"\n",
		"broken_rules":     "games:\n  candle_flip:\n    win_below: \"1.5\"\n",
		"not_yaml":         "games: [",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSettlement([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestLoadSettlement(t *testing.T) {
	t.Parallel()

	s, err := LoadSettlement("")
	require.NoError(t, err)
	require.NoError(t, s.Games.Validate())

	path := filepath.Join(t.TempDir(), "settlement.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\n"), 0o600))

	s, err = LoadSettlement(path)
	require.NoError(t, err)
	require.Equal(t, "UTC", s.Location.String())

	_, err = LoadSettlement(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
