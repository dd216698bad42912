// Package main provides a tool to export aircraft trajectories from the
// observation store to KML format. KML (Keyhole Markup Language) files can be
// viewed in Google Earth, Google Maps, and other mapping applications.
//
// Each aircraft becomes one folder; each flight session becomes one line path
// drawn with a color derived from the aircraft's ICAO address, so the same
// aircraft looks the same across exports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"adsb_tracker/internal/kml"
	"adsb_tracker/internal/storage"
	"adsb_tracker/internal/trajectory"
)

func main() {
	output := flag.String("output", "trajectories.kml", "Output KML file")
	minPoints := flag.Int("min-points", trajectory.DefaultMinPoints, "Minimum points required per trajectory")
	maxAltitude := flag.Float64("max-altitude", 0, "Maximum altitude in meters (0 = no filter)")
	icao := flag.String("icao", "", "Filter by specific ICAO hex code")
	showStats := flag.Bool("stats", false, "Show store statistics only, don't export")
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

	// Show stats mode.
	if *showStats {
		if err := showStoreStats(ctx, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading store: %v\n", err)
			os.Exit(1)
		}
		return
	}

	filter := trajectory.Filter{
		Icao:      *icao,
		MinPoints: *minPoints,
	}
	if *maxAltitude > 0 {
		filter.MaxAltitudeM = maxAltitude
		if *verbose {
			fmt.Fprintf(os.Stderr, "Filtering altitudes <= %.0fm\n", *maxAltitude)
		}
	}

	result, err := trajectory.NewAggregator(store).Aggregate(ctx, filter)
	if err != nil {
		if errors.Is(err, trajectory.ErrNoData) {
			fmt.Fprintln(os.Stderr, "No trajectories found matching criteria")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error querying trajectories: %v\n", err)
		os.Exit(1)
	}

	doc, stats := kml.Build(result)
	if err := kml.WriteFile(doc, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing KML: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Export Statistics")
	fmt.Println("─────────────────")
	fmt.Printf("Aircraft:        %d\n", stats.Aircraft)
	fmt.Printf("Flight sessions: %d\n", stats.Sessions)
	fmt.Printf("Data points:     %d\n", stats.Points)
	if result.Skipped > 0 {
		fmt.Printf("Skipped sessions (< %d points): %d\n", *minPoints, result.Skipped)
	}
	fmt.Printf("\nWrote %s\n", *output)
}

// showStoreStats displays aggregate statistics about the stored observations.
func showStoreStats(ctx context.Context, store storage.Store) error {
	observations, err := store.ListObservations(ctx, storage.ListFilter{})
	if err != nil {
		return err
	}

	aircraft := make(map[string]bool)
	sessions := make(map[string]bool)
	positioned := 0
	for _, obs := range observations {
		aircraft[obs.Icao] = true
		sessions[obs.Icao+"/"+obs.SessionID] = true
		if obs.HasPosition() {
			positioned++
		}
	}

	fmt.Println("Observation Store Statistics")
	fmt.Println("────────────────────────────")
	fmt.Printf("Total observations:  %d\n", len(observations))
	fmt.Printf("With position:       %d\n", positioned)
	fmt.Printf("Aircraft:            %d\n", len(aircraft))
	fmt.Printf("Flight sessions:     %d\n", len(sessions))
	if len(observations) > 0 {
		first := observations[0].Timestamp
		last := observations[len(observations)-1].Timestamp
		fmt.Printf("Date range:          %s to %s\n",
			first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04"))
	}
	return nil
}

// storeFlags registers the store backend flags shared with the tracker binary
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
