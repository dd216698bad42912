package storage

import (
	"context"
	"fmt"
)

// Config holds settings for all supported store backends. Only the selected
// backend's section is used.
type Config struct {
	Backend    string // "sqlite", "postgres" or "clickhouse".
	SQLitePath string
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		Backend:    "sqlite",
		SQLitePath: "adsb.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "adsb",
			User:     "adsb",
			Password: "adsb",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "adsb",
			User:     "default",
			Password: "",
		},
	}
}

// Open opens the store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	case "clickhouse":
		return OpenClickHouse(ctx, cfg.ClickHouse)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
