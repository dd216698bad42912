// Package trajectory reconstructs per-aircraft flight paths from stored
// observations: grouping by aircraft and session, filtering, and computing
// per-session summary statistics.
package trajectory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"adsb_tracker/internal/storage"
)

// DefaultMinPoints is the minimum number of qualifying observations a session
// needs to produce a trajectory.
const DefaultMinPoints = 2

// ErrNoData indicates nothing in the store matched the filter. Callers treat
// this as a clean "nothing to do", not a crash.
var ErrNoData = errors.New("no trajectories match the filter")

// Filter restricts which observations contribute to trajectories.
type Filter struct {
	Icao         string   // Restrict to one aircraft, case-insensitive; empty = all.
	MaxAltitudeM *float64 // Drop observations above this altitude; nil disables.
	MinPoints    int      // Drop sessions with fewer qualifying points; 0 = DefaultMinPoints.
}

// SessionStats summarizes one flight session's trajectory.
type SessionStats struct {
	Points       int
	Start        time.Time
	End          time.Time
	DurationMin  float64
	MaxAltitudeM float64
	MinAltitudeM float64
	Callsign     string // First callsign seen in the session, else "Unknown".
}

// Session is one reconstructed flight: the ordered qualifying observations of
// a single (aircraft, session) pair.
type Session struct {
	Icao      string
	SessionID string
	Points    []storage.Observation
	Stats     SessionStats
}

// AircraftTrajectories groups one aircraft's sessions, ordered by start time.
type AircraftTrajectories struct {
	Icao     string
	Sessions []Session
}

// Result is the aggregated trajectory set, ordered for presentation:
// aircraft lexicographically, sessions by first observation time.
type Result struct {
	Aircraft []AircraftTrajectories
	Skipped  int // Sessions discovered but dropped for having too few points.
}

// Sessions returns the total number of sessions that passed all filters.
func (r *Result) Sessions() int {
	n := 0
	for _, a := range r.Aircraft {
		n += len(a.Sessions)
	}
	return n
}

// Aggregator builds trajectory results from a store.
type Aggregator struct {
	store storage.Store
}

// NewAggregator creates an aggregator reading from the given store.
func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate reads all qualifying observations, groups them by aircraft and
// session, and applies the filter. Observations missing latitude, longitude
// or altitude never contribute. Returns ErrNoData when nothing survives.
func (a *Aggregator) Aggregate(ctx context.Context, f Filter) (*Result, error) {
	minPoints := f.MinPoints
	if minPoints <= 0 {
		minPoints = DefaultMinPoints
	}

	observations, err := a.store.ListObservations(ctx, storage.ListFilter{
		Icao:         strings.ToUpper(f.Icao),
		MaxAltitudeM: f.MaxAltitudeM,
		WithPosition: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}

	// Group by (icao, session). ListObservations is ordered by timestamp and
	// insertion order, so appending preserves path order.
	type key struct{ icao, session string }
	groups := make(map[key][]storage.Observation)
	for _, obs := range observations {
		k := key{obs.Icao, obs.SessionID}
		groups[k] = append(groups[k], obs)
	}

	byIcao := make(map[string][]Session)
	skipped := 0
	for k, points := range groups {
		if len(points) < minPoints {
			skipped++
			continue
		}
		byIcao[k.icao] = append(byIcao[k.icao], Session{
			Icao:      k.icao,
			SessionID: k.session,
			Points:    points,
			Stats:     computeStats(points),
		})
	}

	result := &Result{Skipped: skipped}
	for icao, sessions := range byIcao {
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].Stats.Start.Before(sessions[j].Stats.Start)
		})
		result.Aircraft = append(result.Aircraft, AircraftTrajectories{
			Icao:     icao,
			Sessions: sessions,
		})
	}
	sort.Slice(result.Aircraft, func(i, j int) bool {
		return result.Aircraft[i].Icao < result.Aircraft[j].Icao
	})

	if len(result.Aircraft) == 0 {
		return nil, ErrNoData
	}
	return result, nil
}

func computeStats(points []storage.Observation) SessionStats {
	stats := SessionStats{
		Points:   len(points),
		Start:    points[0].Timestamp,
		End:      points[len(points)-1].Timestamp,
		Callsign: "Unknown",
	}
	stats.DurationMin = stats.End.Sub(stats.Start).Minutes()

	for i, p := range points {
		alt := *p.AltitudeM
		if i == 0 || alt > stats.MaxAltitudeM {
			stats.MaxAltitudeM = alt
		}
		if i == 0 || alt < stats.MinAltitudeM {
			stats.MinAltitudeM = alt
		}
	}

	for _, p := range points {
		if p.Callsign != nil {
			stats.Callsign = *p.Callsign
			break
		}
	}

	return stats
}
