package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fastprodman/betsettle/internal/config"
	"github.com/lmittmann/tint"
)

// Setup sets slog's default logger from cfg and returns it. "text" writes
// colored human output, anything else JSON.
func Setup(cfg config.LogConfig) *slog.Logger {
	logger := slog.New(newHandler(os.Stdout, cfg))
	slog.SetDefault(logger)

	return logger
}

func newHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	if cfg.Format == "text" {
		return tint.NewHandler(w, &tint.Options{
			Level:      cfg.Level,
			TimeFormat: time.DateTime,
		})
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level})
}
