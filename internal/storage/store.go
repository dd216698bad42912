// Package storage provides persistent storage for aircraft observations.
package storage

import (
	"context"
	"time"
)

// Observation is one surveillance reading for an aircraft: position, altitude,
// speed and identity at a point in time. Observations are immutable once
// written; the store is append-only.
type Observation struct {
	ID        int64     // Assigned by the store on insert; reflects insertion order.
	SessionID string    // Flight session UUID, set exactly once at write time.
	Icao      string    // ICAO 24-bit address, 6 hex chars, uppercase.
	Timestamp time.Time // Capture time, UTC. Always set explicitly by the caller.

	// Flight information.
	Callsign *string // Trimmed; nil when the transponder sent blanks or nothing.
	Squawk   *string
	Category *string

	// Position.
	Lat *float64
	Lon *float64

	// Altitude, imperial and metric.
	AltitudeFt *int
	AltitudeM  *float64

	// Movement, imperial and metric.
	SpeedKt     *int
	SpeedKmh    *float64
	Track       *int
	VertRateFpm *int
	VertRateMs  *float64

	// Position accuracy.
	NUCP    *int
	SeenPos *float64

	// Reception metadata, informational only.
	Messages *int
	Seen     *float64
	RSSI     *float64

	// Additional arrays stored as JSON strings.
	Mlat string
	Tisb string
}

// HasPosition reports whether the observation carries everything needed for
// trajectory rendering: latitude, longitude and metric altitude.
func (o *Observation) HasPosition() bool {
	return o.Lat != nil && o.Lon != nil && o.AltitudeM != nil
}

// ListFilter restricts ListObservations results.
type ListFilter struct {
	Icao         string   // Exact match (uppercase); empty matches all.
	MaxAltitudeM *float64 // Drop observations above this altitude; nil disables.
	WithPosition bool     // Only observations with lat, lon and altitude_m present.
}

// Store persists observations. Implementations must order ListObservations
// results by (timestamp ascending, insertion order ascending) and resolve
// LatestForIcao ties between equal timestamps by insertion order, so that
// session assignment is reproducible from persisted data alone.
type Store interface {
	// Insert appends one observation. The observation's ID field is ignored.
	Insert(ctx context.Context, obs Observation) error

	// LatestForIcao returns the most recent observation for an aircraft,
	// or nil when the aircraft has never been seen.
	LatestForIcao(ctx context.Context, icao string) (*Observation, error)

	// ListObservations returns observations matching the filter in
	// (timestamp, insertion order) ascending order.
	ListObservations(ctx context.Context, f ListFilter) ([]Observation, error)

	// Close releases the underlying connection.
	Close() error
}
