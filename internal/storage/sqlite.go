package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore wraps a SQLite database for observation storage. This is the
// default backend for single-receiver deployments.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
// An empty path or ":memory:" uses an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id    TEXT NOT NULL,
		icao          TEXT NOT NULL,
		timestamp_ns  INTEGER NOT NULL,
		callsign      TEXT,
		squawk        TEXT,
		category      TEXT,
		lat           REAL,
		lon           REAL,
		altitude_ft   INTEGER,
		altitude_m    REAL,
		speed_kt      INTEGER,
		speed_kmh     REAL,
		track         INTEGER,
		vert_rate_fpm INTEGER,
		vert_rate_ms  REAL,
		nucp          INTEGER,
		seen_pos      REAL,
		messages      INTEGER,
		seen          REAL,
		rssi          REAL,
		mlat          TEXT,
		tisb          TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_observations_icao ON observations(icao);
	CREATE INDEX IF NOT EXISTS idx_observations_icao_ts ON observations(icao, timestamp_ns);
	CREATE INDEX IF NOT EXISTS idx_observations_session ON observations(session_id);
	CREATE INDEX IF NOT EXISTS idx_observations_timestamp ON observations(timestamp_ns);
	`

	_, err := db.Exec(schema)
	return err
}

const sqliteColumns = `id, session_id, icao, timestamp_ns, callsign, squawk, category,
	lat, lon, altitude_ft, altitude_m, speed_kt, speed_kmh, track,
	vert_rate_fpm, vert_rate_ms, nucp, seen_pos, messages, seen, rssi, mlat, tisb`

// Insert appends one observation.
func (s *SQLiteStore) Insert(ctx context.Context, obs Observation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (session_id, icao, timestamp_ns, callsign, squawk, category,
			lat, lon, altitude_ft, altitude_m, speed_kt, speed_kmh, track,
			vert_rate_fpm, vert_rate_ms, nucp, seen_pos, messages, seen, rssi, mlat, tisb)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, obs.SessionID, obs.Icao, obs.Timestamp.UTC().UnixNano(), obs.Callsign, obs.Squawk, obs.Category,
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
func (s *SQLiteStore) LatestForIcao(ctx context.Context, icao string) (*Observation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM observations
		WHERE icao = ?
		ORDER BY timestamp_ns DESC, id DESC
		LIMIT 1
	`, icao)

	obs, err := scanSQLiteObservation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest for %s: %w", icao, err)
	}
	return obs, nil
}

// ListObservations returns observations matching the filter in
// (timestamp, insertion order) ascending order.
func (s *SQLiteStore) ListObservations(ctx context.Context, f ListFilter) ([]Observation, error) {
	var conditions []string
	var args []interface{}

	if f.Icao != "" {
		conditions = append(conditions, "icao = ?")
		args = append(args, f.Icao)
	}
	if f.WithPosition {
		conditions = append(conditions, "lat IS NOT NULL AND lon IS NOT NULL AND altitude_m IS NOT NULL")
	}
	if f.MaxAltitudeM != nil {
		conditions = append(conditions, "altitude_m <= ?")
		args = append(args, *f.MaxAltitudeM)
	}

	query := "SELECT " + sqliteColumns + " FROM observations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp_ns ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var observations []Observation
	for rows.Next() {
		obs, err := scanSQLiteObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		observations = append(observations, *obs)
	}

	return observations, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteObservation(row scanner) (*Observation, error) {
	var o Observation
	var tsNs int64
	var callsign, squawk, category, mlat, tisb sql.NullString
	var lat, lon, altM, speedKmh, vertMs, seenPos, seen, rssi sql.NullFloat64
	var altFt, speedKt, track, vertFpm, nucp, messages sql.NullInt64

	err := row.Scan(&o.ID, &o.SessionID, &o.Icao, &tsNs, &callsign, &squawk, &category,
		&lat, &lon, &altFt, &altM, &speedKt, &speedKmh, &track,
		&vertFpm, &vertMs, &nucp, &seenPos, &messages, &seen, &rssi, &mlat, &tisb)
	if err != nil {
		return nil, err
	}

	o.Timestamp = time.Unix(0, tsNs).UTC()
	o.Callsign = nullString(callsign)
	o.Squawk = nullString(squawk)
	o.Category = nullString(category)
	o.Lat = nullFloat(lat)
	o.Lon = nullFloat(lon)
	o.AltitudeFt = nullInt(altFt)
	o.AltitudeM = nullFloat(altM)
	o.SpeedKt = nullInt(speedKt)
	o.SpeedKmh = nullFloat(speedKmh)
	o.Track = nullInt(track)
	o.VertRateFpm = nullInt(vertFpm)
	o.VertRateMs = nullFloat(vertMs)
	o.NUCP = nullInt(nucp)
	o.SeenPos = nullFloat(seenPos)
	o.Messages = nullInt(messages)
	o.Seen = nullFloat(seen)
	o.RSSI = nullFloat(rssi)
	if mlat.Valid {
		o.Mlat = mlat.String
	}
	if tisb.Valid {
		o.Tisb = tisb.String
	}

	return &o, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
