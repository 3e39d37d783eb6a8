package config

import (
	"log/slog"
	"time"
)

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

type LogConfig struct {
	Level  slog.Level `env:"APP_LOG_LEVEL" default:"INFO"`
	Format string     `env:"APP_LOG_FORMAT" default:"json"` // json | text
}

// NATSConfig leaves URL empty to disable event publishing.
type NATSConfig struct {
	URL           string `env:"NATS_URL" default:""`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" default:"settlement"`
}
