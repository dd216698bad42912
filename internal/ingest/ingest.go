// Package ingest runs the polling loop that turns feed snapshots into stored
// observations with assigned flight sessions.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"adsb_tracker/internal/dump1090"
	"adsb_tracker/internal/feed"
	"adsb_tracker/internal/session"
	"adsb_tracker/internal/storage"
)

// Ingestor polls a feed source and persists each aircraft's state as an
// observation, classified into a flight session. Transient errors (source
// not ready, malformed snapshot, a single failed insert) are logged and the
// loop continues; it only stops when the context is cancelled.
type Ingestor struct {
	feed     feed.Source
	store    storage.Store
	sessions *session.Tracker
	log      *slog.Logger
	interval time.Duration
	pretty   bool

	now func() time.Time
}

// New creates an ingestor polling src on the given interval.
func New(src feed.Source, store storage.Store, sessions *session.Tracker, log *slog.Logger, interval time.Duration, pretty bool) *Ingestor {
	return &Ingestor{
		feed:     src,
		store:    store,
		sessions: sessions,
		log:      log,
		interval: interval,
		pretty:   pretty,
		now:      time.Now,
	}
}

// Run polls until the context is cancelled.
func (i *Ingestor) Run(ctx context.Context) error {
	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		i.cycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (i *Ingestor) cycle(ctx context.Context) {
	snap, err := i.feed.Poll(ctx)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		case errors.Is(err, feed.ErrNotReady):
			i.log.Debug("feed not ready, waiting")
		default:
			i.log.Warn("skipping poll cycle", "error", err)
		}
		return
	}

	i.ProcessSnapshot(ctx, snap)
}

// ProcessSnapshot classifies and persists every aircraft in one snapshot.
func (i *Ingestor) ProcessSnapshot(ctx context.Context, snap *dump1090.Snapshot) {
	at := i.now().UTC()
	if snap.Now > 0 {
		sec := int64(snap.Now)
		ns := int64((snap.Now - float64(sec)) * float64(time.Second))
		at = time.Unix(sec, ns).UTC()
	}

	if i.pretty {
		printSnapshot(os.Stdout, snap, at)
	} else {
		i.log.Info("processing snapshot",
			"aircraft", len(snap.Aircraft),
			"total_messages", snap.Messages)
	}

	for _, ac := range snap.Aircraft {
		if strings.TrimSpace(ac.Hex) == "" {
			continue
		}

		icao := strings.ToUpper(strings.TrimSpace(ac.Hex))
		sessionID, err := i.sessions.Assign(ctx, icao, at)
		if err != nil {
			i.log.Error("session assignment failed", "icao", icao, "error", err)
			continue
		}

		obs := ObservationFromAircraft(ac, at, sessionID)
		if err := i.store.Insert(ctx, obs); err != nil {
			i.log.Error("store write failed", "icao", icao, "error", err)
			continue
		}

		if !i.pretty {
			i.logObservation(obs)
		}
	}
}

func (i *Ingestor) logObservation(obs storage.Observation) {
	attrs := []any{"icao", obs.Icao}
	if obs.Callsign != nil {
		attrs = append(attrs, "flight", *obs.Callsign)
	}
	if obs.AltitudeFt != nil {
		attrs = append(attrs, "alt_ft", *obs.AltitudeFt)
	}
	if obs.Lat != nil && obs.Lon != nil {
		attrs = append(attrs, "pos", fmt.Sprintf("%.5f,%.5f", *obs.Lat, *obs.Lon))
	}
	if obs.SpeedKt != nil {
		attrs = append(attrs, "speed_kt", *obs.SpeedKt)
	}
	if obs.RSSI != nil {
		attrs = append(attrs, "rssi", fmt.Sprintf("%.1f", *obs.RSSI))
	}
	i.log.Info("aircraft", attrs...)
}

// ObservationFromAircraft converts a snapshot entry into an observation.
// This is the single normalization point: the ICAO address is uppercased,
// blank callsigns become nil, and metric equivalents are derived from the
// feed's imperial units.
func ObservationFromAircraft(ac dump1090.Aircraft, at time.Time, sessionID string) storage.Observation {
	obs := storage.Observation{
		SessionID: sessionID,
		Icao:      strings.ToUpper(strings.TrimSpace(ac.Hex)),
		Timestamp: at.UTC(),
		NUCP:      ac.NUCP,
		SeenPos:   ac.SeenPos,
		Messages:  ac.Messages,
		Seen:      ac.Seen,
		RSSI:      ac.RSSI,
		Mlat:      marshalList(ac.Mlat),
		Tisb:      marshalList(ac.Tisb),
	}

	if callsign := strings.TrimSpace(ac.Flight); callsign != "" {
		obs.Callsign = &callsign
	}
	if ac.Squawk != "" {
		squawk := ac.Squawk
		obs.Squawk = &squawk
	}
	if ac.Category != "" {
		category := ac.Category
		obs.Category = &category
	}

	obs.Lat = ac.Lat
	obs.Lon = ac.Lon

	if ac.Altitude != nil {
		ft := int(*ac.Altitude)
		m := dump1090.FeetToMeters(ft)
		obs.AltitudeFt = &ft
		obs.AltitudeM = &m
	}
	if ac.Speed != nil {
		kt := *ac.Speed
		kmh := dump1090.KnotsToKmh(kt)
		obs.SpeedKt = &kt
		obs.SpeedKmh = &kmh
	}
	obs.Track = ac.Track
	if ac.VertRate != nil {
		fpm := *ac.VertRate
		ms := dump1090.FpmToMs(fpm)
		obs.VertRateFpm = &fpm
		obs.VertRateMs = &ms
	}

	return obs
}

func marshalList(values []string) string {
	if values == nil {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}
