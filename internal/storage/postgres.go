package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresStore wraps a PostgreSQL connection pool for observation storage.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL and creates the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return s, nil
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id            BIGSERIAL PRIMARY KEY,
		session_id    TEXT NOT NULL,
		icao          TEXT NOT NULL,
		timestamp     TIMESTAMPTZ NOT NULL,
		callsign      TEXT,
		squawk        TEXT,
		category      TEXT,
		lat           DOUBLE PRECISION,
		lon           DOUBLE PRECISION,
		altitude_ft   INTEGER,
		altitude_m    DOUBLE PRECISION,
		speed_kt      INTEGER,
		speed_kmh     DOUBLE PRECISION,
		track         INTEGER,
		vert_rate_fpm INTEGER,
		vert_rate_ms  DOUBLE PRECISION,
		nucp          INTEGER,
		seen_pos      DOUBLE PRECISION,
		messages      INTEGER,
		seen          DOUBLE PRECISION,
		rssi          DOUBLE PRECISION,
		mlat          TEXT,
		tisb          TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_observations_icao ON observations(icao);
	CREATE INDEX IF NOT EXISTS idx_observations_icao_ts ON observations(icao, timestamp);
	CREATE INDEX IF NOT EXISTS idx_observations_session ON observations(session_id);
	CREATE INDEX IF NOT EXISTS idx_observations_timestamp ON observations(timestamp);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

const postgresColumns = `id, session_id, icao, timestamp, callsign, squawk, category,
	lat, lon, altitude_ft, altitude_m, speed_kt, speed_kmh, track,
	vert_rate_fpm, vert_rate_ms, nucp, seen_pos, messages, seen, rssi, mlat, tisb`

// Insert appends one observation.
func (s *PostgresStore) Insert(ctx context.Context, obs Observation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO observations (session_id, icao, timestamp, callsign, squawk, category,
			lat, lon, altitude_ft, altitude_m, speed_kt, speed_kmh, track,
			vert_rate_fpm, vert_rate_ms, nucp, seen_pos, messages, seen, rssi, mlat, tisb)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, obs.SessionID, obs.Icao, obs.Timestamp.UTC(), obs.Callsign, obs.Squawk, obs.Category,
		obs.Lat, obs.Lon, obs.AltitudeFt, obs.AltitudeM, obs.SpeedKt, obs.SpeedKmh, obs.Track,
		obs.VertRateFpm, obs.VertRateMs, obs.NUCP, obs.SeenPos, obs.Messages, obs.Seen, obs.RSSI,
		obs.Mlat, obs.Tisb)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// LatestForIcao returns the most recent observation for an aircraft.
// Equal timestamps are resolved by insertion order (highest id wins).
func (s *PostgresStore) LatestForIcao(ctx context.Context, icao string) (*Observation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+postgresColumns+`
		FROM observations
		WHERE icao = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, icao)

	obs, err := scanPostgresObservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest for %s: %w", icao, err)
	}
	return obs, nil
}

// ListObservations returns observations matching the filter in
// (timestamp, insertion order) ascending order.
func (s *PostgresStore) ListObservations(ctx context.Context, f ListFilter) ([]Observation, error) {
	var conditions []string
	var args []interface{}

	if f.Icao != "" {
		args = append(args, f.Icao)
		conditions = append(conditions, fmt.Sprintf("icao = $%d", len(args)))
	}
	if f.WithPosition {
		conditions = append(conditions, "lat IS NOT NULL AND lon IS NOT NULL AND altitude_m IS NOT NULL")
	}
	if f.MaxAltitudeM != nil {
		args = append(args, *f.MaxAltitudeM)
		conditions = append(conditions, fmt.Sprintf("altitude_m <= $%d", len(args)))
	}

	query := "SELECT " + postgresColumns + " FROM observations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []Observation
	for rows.Next() {
		obs, err := scanPostgresObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		observations = append(observations, *obs)
	}

	return observations, rows.Err()
}

func scanPostgresObservation(row pgx.Row) (*Observation, error) {
	var o Observation
	var ts time.Time
	var mlat, tisb *string

	err := row.Scan(&o.ID, &o.SessionID, &o.Icao, &ts, &o.Callsign, &o.Squawk, &o.Category,
		&o.Lat, &o.Lon, &o.AltitudeFt, &o.AltitudeM, &o.SpeedKt, &o.SpeedKmh, &o.Track,
		&o.VertRateFpm, &o.VertRateMs, &o.NUCP, &o.SeenPos, &o.Messages, &o.Seen, &o.RSSI,
		&mlat, &tisb)
	if err != nil {
		return nil, err
	}

	o.Timestamp = ts.UTC()
	if mlat != nil {
		o.Mlat = *mlat
	}
	if tisb != nil {
		o.Tisb = *tisb
	}

	return &o, nil
}
