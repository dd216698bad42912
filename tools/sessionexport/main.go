// Package main provides a tool to export flight session summaries from the
// observation store to CSV format. Each row is one session:
// icao,session_id,callsign,start,end,duration_min,points,min_alt_m,max_alt_m
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"adsb_tracker/internal/storage"
	"adsb_tracker/internal/trajectory"
)

func main() {
	output := flag.String("output", "", "Output CSV file (default: stdout)")
	minPoints := flag.Int("min-points", trajectory.DefaultMinPoints, "Minimum points required per session")
	maxAltitude := flag.Float64("max-altitude", 0, "Maximum altitude in meters (0 = no filter)")
	icao := flag.String("icao", "", "Filter by specific ICAO hex code")
	header := flag.Bool("header", true, "Write a CSV header row")
	verbose := flag.Bool("v", false, "Verbose output")

	cfg := storeFlags()
	flag.Parse()

	ctx := context.Background()

	store, err := storage.Open(ctx, *cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	filter := trajectory.Filter{Icao: *icao, MinPoints: *minPoints}
	if *maxAltitude > 0 {
		filter.MaxAltitudeM = maxAltitude
	}

	result, err := trajectory.NewAggregator(store).Aggregate(ctx, filter)
	if err != nil {
		if errors.Is(err, trajectory.ErrNoData) {
			fmt.Fprintln(os.Stderr, "No sessions found matching criteria")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error querying sessions: %v\n", err)
		os.Exit(1)
	}

	// Write output.
	var writer *csv.Writer
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		writer = csv.NewWriter(file)
	} else {
		writer = csv.NewWriter(os.Stdout)
	}

	if *header {
		row := []string{"icao", "session_id", "callsign", "start", "end", "duration_min", "points", "min_alt_m", "max_alt_m"}
		if err := writer.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
			os.Exit(1)
		}
	}

	rows := 0
	for _, aircraft := range result.Aircraft {
		for _, sess := range aircraft.Sessions {
			s := sess.Stats
			row := []string{
				sess.Icao,
				sess.SessionID,
				s.Callsign,
				s.Start.Format(time.RFC3339),
				s.End.Format(time.RFC3339),
				strconv.FormatFloat(s.DurationMin, 'f', 1, 64),
				strconv.Itoa(s.Points),
				strconv.FormatFloat(s.MinAltitudeM, 'f', 0, 64),
				strconv.FormatFloat(s.MaxAltitudeM, 'f', 0, 64),
			}
			if err := writer.Write(row); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing row: %v\n", err)
				os.Exit(1)
			}
			rows++
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing CSV: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Wrote %d sessions", rows)
		if *output != "" {
			fmt.Fprintf(os.Stderr, " to %s", *output)
		}
		fmt.Fprintln(os.Stderr)
	}
}

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
