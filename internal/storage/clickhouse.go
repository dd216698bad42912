package storage

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseStore wraps a ClickHouse connection for long-retention observation
// archives. ClickHouse has no autoincrement, so insertion order is tracked
// with an in-process counter seeded from the current maximum id; this holds
// under the single-writer-per-identity model the ingest loop guarantees.
type ClickHouseStore struct {
	conn   driver.Conn
	nextID atomic.Int64
}

// OpenClickHouse opens a connection to ClickHouse and creates the schema.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	s := &ClickHouseStore{conn: conn}
	if err := s.createSchema(ctx); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var maxID int64
	if err := conn.QueryRow(ctx, "SELECT COALESCE(MAX(id), 0) FROM observations").Scan(&maxID); err != nil {
		return nil, fmt.Errorf("seed id counter: %w", err)
	}
	s.nextID.Store(maxID)

	return s, nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

func (s *ClickHouseStore) createSchema(ctx context.Context) error {
	schema := `CREATE TABLE IF NOT EXISTS observations (
		id            Int64,
		session_id    String,
		icao          LowCardinality(String),
		timestamp     DateTime64(3),
		callsign      Nullable(String),
		squawk        Nullable(String),
		category      Nullable(String),
		lat           Nullable(Float64),
		lon           Nullable(Float64),
		altitude_ft   Nullable(Int32),
		altitude_m    Nullable(Float64),
		speed_kt      Nullable(Int32),
		speed_kmh     Nullable(Float64),
		track         Nullable(Int32),
		vert_rate_fpm Nullable(Int32),
		vert_rate_ms  Nullable(Float64),
		nucp          Nullable(Int32),
		seen_pos      Nullable(Float64),
		messages      Nullable(Int32),
		seen          Nullable(Float64),
		rssi          Nullable(Float64),
		mlat          String,
		tisb          String
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (icao, timestamp, id)
	SETTINGS index_granularity = 8192`

	return s.conn.Exec(ctx, schema)
}

const clickhouseColumns = `id, session_id, icao, timestamp, callsign, squawk, category,
	lat, lon, altitude_ft, altitude_m, speed_kt, speed_kmh, track,
	vert_rate_fpm, vert_rate_ms, nucp, seen_pos, messages, seen, rssi, mlat, tisb`

// Insert appends one observation.
func (s *ClickHouseStore) Insert(ctx context.Context, obs Observation) error {
	id := s.nextID.Add(1)

	err := s.conn.Exec(ctx, `
		INSERT INTO observations (`+clickhouseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, obs.SessionID, obs.Icao, obs.Timestamp.UTC(), obs.Callsign, obs.Squawk, obs.Category,
		obs.Lat, obs.Lon, intPtr32(obs.AltitudeFt), obs.AltitudeM, intPtr32(obs.SpeedKt), obs.SpeedKmh, intPtr32(obs.Track),
		intPtr32(obs.VertRateFpm), obs.VertRateMs, intPtr32(obs.NUCP), obs.SeenPos, intPtr32(obs.Messages), obs.Seen, obs.RSSI,
		obs.Mlat, obs.Tisb)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// LatestForIcao returns the most recent observation for an aircraft.
// Equal timestamps are resolved by insertion order (highest id wins).
func (s *ClickHouseStore) LatestForIcao(ctx context.Context, icao string) (*Observation, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+clickhouseColumns+`
		FROM observations
		WHERE icao = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, icao)
	if err != nil {
		return nil, fmt.Errorf("query latest for %s: %w", icao, err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	obs, err := scanClickHouseObservation(rows)
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return obs, nil
}

// ListObservations returns observations matching the filter in
// (timestamp, insertion order) ascending order.
func (s *ClickHouseStore) ListObservations(ctx context.Context, f ListFilter) ([]Observation, error) {
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

	query := "SELECT " + clickhouseColumns + " FROM observations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var observations []Observation
	for rows.Next() {
		obs, err := scanClickHouseObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		observations = append(observations, *obs)
	}

	return observations, rows.Err()
}

func scanClickHouseObservation(rows driver.Rows) (*Observation, error) {
	var o Observation
	var ts time.Time
	var altFt, speedKt, track, vertFpm, nucp, messages *int32

	err := rows.Scan(&o.ID, &o.SessionID, &o.Icao, &ts, &o.Callsign, &o.Squawk, &o.Category,
		&o.Lat, &o.Lon, &altFt, &o.AltitudeM, &speedKt, &o.SpeedKmh, &track,
		&vertFpm, &o.VertRateMs, &nucp, &o.SeenPos, &messages, &o.Seen, &o.RSSI,
		&o.Mlat, &o.Tisb)
	if err != nil {
		return nil, err
	}

	o.Timestamp = ts.UTC()
	o.AltitudeFt = int32Ptr(altFt)
	o.SpeedKt = int32Ptr(speedKt)
	o.Track = int32Ptr(track)
	o.VertRateFpm = int32Ptr(vertFpm)
	o.NUCP = int32Ptr(nucp)
	o.Messages = int32Ptr(messages)

	return &o, nil
}

func intPtr32(v *int) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}

func int32Ptr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
