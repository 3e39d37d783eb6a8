package main

import (
	"time"

	"github.com/fastprodman/betsettle/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"10s"`
	// DemoMode enables the faucet.
	DemoMode bool `env:"DEMO_MODE" default:"false"`
	// SettlementConfig is an optional YAML file with the game catalog,
	// faucet caps and faucet time zone.
	SettlementConfig string `env:"SETTLEMENT_CONFIG" default:""`
	// AuditInterval is how often every account is checked against the
	// ledger. Zero disables the sweep.
	AuditInterval time.Duration `env:"AUDIT_INTERVAL" default:"5m"`

	Log      config.LogConfig
	Postgres config.PostgresConfig
	NATS     config.NATSConfig
}
