package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/fastprodman/betsettle/internal/services/ledger"
)

type auditor interface {
	AuditAll(ctx context.Context) ([]ledger.Report, error)
}

// runAuditSweep checks every account against the ledger once per interval
// until ctx is done. Divergent accounts end up flagged corrupted and refuse
// writes until reconciled.
func runAuditSweep(ctx context.Context, a auditor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reps, err := a.AuditAll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			slog.ErrorContext(ctx, "ledger audit failed", "err", err)

			continue
		}

		for _, rep := range reps {
			slog.ErrorContext(ctx, "account flagged corrupted",
				"account", rep.Key.String(),
				"cached_total", rep.Cached.Total.String(),
				"ledger_total", rep.Ledger.Total.String(),
			)
		}
	}
}
