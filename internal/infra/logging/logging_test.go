package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fastprodman/betsettle/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(newHandler(&buf, config.LogConfig{Level: slog.LevelInfo, Format: "json"}))

		log.Debug("hidden")
		log.Info("bet settled", "bet_id", "b1")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "bet settled", line["msg"])
		require.Equal(t, "b1", line["bet_id"])
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := slog.New(newHandler(&buf, config.LogConfig{Level: slog.LevelDebug, Format: "text"}))

		log.Debug("ledger entry", "type", "BET_STAKE")
		require.Contains(t, buf.String(), "ledger entry")
		require.Contains(t, buf.String(), "BET_STAKE")
	})
}
