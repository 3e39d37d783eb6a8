package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/betsettle/internal/api"
	"github.com/fastprodman/betsettle/internal/config"
	"github.com/fastprodman/betsettle/internal/events"
	"github.com/fastprodman/betsettle/internal/infra/logging"
	"github.com/fastprodman/betsettle/internal/infra/pgutils"
	"github.com/fastprodman/betsettle/internal/services/bets"
	"github.com/fastprodman/betsettle/internal/services/fairness"
	"github.com/fastprodman/betsettle/internal/services/ledger"
	"github.com/fastprodman/betsettle/internal/services/wallet"
	"github.com/fastprodman/betsettle/pkg/envconf"
	"github.com/fastprodman/betsettle/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.Setup(cfg.Log)

	settlement, err := config.LoadSettlement(cfg.SettlementConfig)
	if err != nil {
		return fmt.Errorf("settlement config: %w", err)
	}

	queue := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := queue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	queue.Add("postgres", func(context.Context) error { return db.Close() })

	var pub events.Publisher = events.Nop{}

	if cfg.NATS.URL != "" {
		emitter, err := events.NewEmitter(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}

		queue.Add("nats", func(context.Context) error {
			emitter.Close()
			return nil
		})

		pub = emitter
	} else {
		slog.Warn("NATS_URL not set, settlement events are not published")
	}

	// --- Services ---
	ledgerSrv := ledger.New(db)
	fairnessSrv := fairness.New(db)
	betSrv := bets.New(db, ledgerSrv, fairnessSrv, settlement.Games, pub)

	walletSrv, err := wallet.New(db, ledgerSrv, cfg.DemoMode, settlement)
	if err != nil {
		return fmt.Errorf("init wallet: %w", err)
	}

	// --- Background ---
	if cfg.AuditInterval > 0 {
		auditCtx, cancelAudit := context.WithCancel(context.WithoutCancel(ctx))
		auditDone := make(chan struct{})

		go func() {
			defer close(auditDone)
			runAuditSweep(auditCtx, ledgerSrv, cfg.AuditInterval)
		}()

		queue.Add("audit", func(c context.Context) error {
			cancelAudit()

			select {
			case <-auditDone:
				return nil
			case <-c.Done():
				return fmt.Errorf("stop audit sweep: %w", c.Err())
			}
		})
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.NewHandler(betSrv, walletSrv, fairnessSrv))

	// Registered last so it drains first.
	queue.Add("http", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started",
		"port", cfg.Port,
		"demo", cfg.DemoMode,
		"zone", settlement.Location.String(),
		"audit_interval", cfg.AuditInterval.String(),
	)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
