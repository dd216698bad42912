// Command adsb_tracker reads dump1090 snapshot data and logs aircraft
// observations to a database, grouping each aircraft's readings into flight
// sessions for later trajectory export.
//
// Usage:
//
//	adsb_tracker [options]
//
// Options:
//
//	-json-file PATH    dump1090 aircraft.json to poll (default /tmp/dump1090/aircraft.json)
//	-nats-url URL      read snapshots from a NATS subject instead of the file
//	-nats-subject S    NATS snapshot subject (default adsb.snapshot)
//	-interval N        polling interval in seconds (default 1)
//	-pretty            human console view instead of structured logs
//	-log-level LEVEL   debug, info, warn or error (default info)
//	-session-timeout N minutes of silence before a new flight session (default 30)
//
// Store selection:
//
//	-db BACKEND        sqlite, postgres or clickhouse (default sqlite)
//	-sqlite-path PATH  SQLite database file (default adsb.db)
//	-pg-host, -pg-port, -pg-user, -pg-password, -pg-db
//	                   PostgreSQL settings (env: POSTGRES_*)
//	-ch-host, -ch-port, -ch-user, -ch-password, -ch-db
//	                   ClickHouse settings (env: CLICKHOUSE_*)
//
// The tracker runs until interrupted; SIGINT/SIGTERM stop the loop and close
// the store cleanly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"adsb_tracker/internal/feed"
	"adsb_tracker/internal/ingest"
	"adsb_tracker/internal/session"
	"adsb_tracker/internal/storage"
)

func main() {
	jsonFile := flag.String("json-file", "/tmp/dump1090/aircraft.json", "Path to dump1090 aircraft.json file")
	natsURL := flag.String("nats-url", "", "Read snapshots from NATS instead of the JSON file")
	natsSubject := flag.String("nats-subject", feed.DefaultSubject, "NATS snapshot subject")
	interval := flag.Int("interval", 1, "Polling interval in seconds")
	pretty := flag.Bool("pretty", false, "Pretty console output instead of structured logging")
	logLevel := flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	sessionTimeout := flag.Int("session-timeout", 30, "Minutes of silence before a new flight session")

	cfg := storeFlags()
	flag.Parse()

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, *cfg)
	if err != nil {
		logger.Error("store connect failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	logger.Info("store connected", "backend", cfg.Backend)

	var src feed.Source
	if *natsURL != "" {
		src, err = feed.NewNATSSource(*natsURL, *natsSubject)
		if err != nil {
			logger.Error("nats connect failed", "error", err)
			os.Exit(1)
		}
		logger.Info("reading snapshots from NATS", "url", *natsURL, "subject", *natsSubject)
	} else {
		src = feed.NewFileSource(*jsonFile)
		logger.Info("monitoring aircraft.json", "path", *jsonFile)
	}
	defer func() { _ = src.Close() }()

	tracker := session.NewTracker(store, time.Duration(*sessionTimeout)*time.Minute)
	ingestor := ingest.New(src, store, tracker, logger,
		time.Duration(*interval)*time.Second, *pretty)

	err = ingestor.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ingest loop failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tracker stopped")
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// storeFlags registers the store backend flags shared with the export tools
// and returns the config they populate.
func storeFlags() *storage.Config {
	cfg := storage.DefaultConfig()

	flag.StringVar(&cfg.Backend, "db", cfg.Backend, "Store backend: sqlite, postgres or clickhouse")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")

	flag.StringVar(&cfg.Postgres.Host, "pg-host", envOrDefault("POSTGRES_HOST", cfg.Postgres.Host), "PostgreSQL host")
	flag.IntVar(&cfg.Postgres.Port, "pg-port", envOrDefaultInt("POSTGRES_PORT", cfg.Postgres.Port), "PostgreSQL port")
	flag.StringVar(&cfg.Postgres.User, "pg-user", envOrDefault("POSTGRES_USER", cfg.Postgres.User), "PostgreSQL user")
	flag.StringVar(&cfg.Postgres.Password, "pg-password", envOrDefault("POSTGRES_PASSWORD", cfg.Postgres.Password), "PostgreSQL password")
	flag.StringVar(&cfg.Postgres.Database, "pg-db", envOrDefault("POSTGRES_DATABASE", cfg.Postgres.Database), "PostgreSQL database")

	flag.StringVar(&cfg.ClickHouse.Host, "ch-host", envOrDefault("CLICKHOUSE_HOST", cfg.ClickHouse.Host), "ClickHouse host")
	flag.IntVar(&cfg.ClickHouse.Port, "ch-port", envOrDefaultInt("CLICKHOUSE_PORT", cfg.ClickHouse.Port), "ClickHouse port")
	flag.StringVar(&cfg.ClickHouse.User, "ch-user", envOrDefault("CLICKHOUSE_USER", cfg.ClickHouse.User), "ClickHouse user")
	flag.StringVar(&cfg.ClickHouse.Password, "ch-password", envOrDefault("CLICKHOUSE_PASSWORD", cfg.ClickHouse.Password), "ClickHouse password")
	flag.StringVar(&cfg.ClickHouse.Database, "ch-db", envOrDefault("CLICKHOUSE_DATABASE", cfg.ClickHouse.Database), "ClickHouse database")

	return &cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
