// Package dump1090 provides types for the dump1090 aircraft.json snapshot format.
package dump1090

import (
	"encoding/json"
	"fmt"
)

// FlexAltitude handles the altitude field, which dump1090 emits either as a
// number (feet) or the string "ground" for aircraft on the surface.
type FlexAltitude int

func (f *FlexAltitude) UnmarshalJSON(data []byte) error {
	// Try as number first
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexAltitude(i)
		return nil
	}

	// Try as string ("ground" and friends decode to surface level)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = 0
		return nil
	}

	*f = 0
	return nil
}

// Snapshot represents one polled aircraft.json document: a capture timestamp,
// a running message counter, and the current state of every visible aircraft.
type Snapshot struct {
	Now      float64    `json:"now"`      // Unix timestamp (seconds) when the file was generated.
	Messages int64      `json:"messages"` // Total Mode S messages received since startup.
	Aircraft []Aircraft `json:"aircraft"`
}

// Aircraft is the per-aircraft state dictionary inside a snapshot.
// Optional fields are pointers; dump1090 omits what it has not decoded yet.
type Aircraft struct {
	Hex      string `json:"hex"`                // ICAO 24-bit address as 6 hex chars.
	Flight   string `json:"flight,omitempty"`   // Callsign, space-padded by the transponder.
	Squawk   string `json:"squawk,omitempty"`
	Category string `json:"category,omitempty"`

	Lat      *float64      `json:"lat,omitempty"`
	Lon      *float64      `json:"lon,omitempty"`
	Altitude *FlexAltitude `json:"altitude,omitempty"` // Feet, or "ground".

	Speed    *int `json:"speed,omitempty"`     // Ground speed, knots.
	Track    *int `json:"track,omitempty"`     // Degrees.
	VertRate *int `json:"vert_rate,omitempty"` // Feet per minute.

	NUCP    *int     `json:"nucp,omitempty"`
	SeenPos *float64 `json:"seen_pos,omitempty"`

	Messages *int     `json:"messages,omitempty"`
	Seen     *float64 `json:"seen,omitempty"` // Seconds since last message.
	RSSI     *float64 `json:"rssi,omitempty"` // dBFS.

	Mlat []string `json:"mlat,omitempty"`
	Tisb []string `json:"tisb,omitempty"`
}

// Decode parses an aircraft.json document.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Unit conversions. dump1090 reports imperial units; trajectory rendering and
// filtering work in metric, so both are stored.

// FeetToMeters converts an altitude in feet to meters.
func FeetToMeters(ft int) float64 {
	return float64(ft) / 3.28084
}

// KnotsToKmh converts a ground speed in knots to km/h.
func KnotsToKmh(kt int) float64 {
	return float64(kt) * 1.852
}

// FpmToMs converts a vertical rate in feet per minute to meters per second.
func FpmToMs(fpm int) float64 {
	return float64(fpm) / 196.85
}
