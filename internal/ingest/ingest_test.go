package ingest

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"adsb_tracker/internal/dump1090"
	"adsb_tracker/internal/session"
	"adsb_tracker/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int { return &i }
func altPtr(ft int) *dump1090.FlexAltitude {
	a := dump1090.FlexAltitude(ft)
	return &a
}

func TestObservationFromAircraft(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("normalization", func(t *testing.T) {
		ac := dump1090.Aircraft{
			Hex:      "abc123",
			Flight:   "QFA123  ",
			Squawk:   "3664",
			Lat:      f64Ptr(-33.9),
			Lon:      f64Ptr(151.2),
			Altitude: altPtr(32808),
			Speed:    intPtr(100),
			VertRate: intPtr(1968),
			Mlat:     []string{"lat", "lon"},
		}

		obs := ObservationFromAircraft(ac, at, "sess-1")

		if obs.Icao != "ABC123" {
			t.Errorf("Icao = %q, want uppercased ABC123", obs.Icao)
		}
		if obs.Callsign == nil || *obs.Callsign != "QFA123" {
			t.Errorf("Callsign = %v, want trimmed QFA123", obs.Callsign)
		}
		if obs.SessionID != "sess-1" {
			t.Errorf("SessionID = %q", obs.SessionID)
		}
		if !obs.Timestamp.Equal(at) {
			t.Errorf("Timestamp = %v, want %v", obs.Timestamp, at)
		}
		if obs.AltitudeFt == nil || *obs.AltitudeFt != 32808 {
			t.Errorf("AltitudeFt = %v", obs.AltitudeFt)
		}
		if obs.AltitudeM == nil || *obs.AltitudeM < 9999 || *obs.AltitudeM > 10001 {
			t.Errorf("AltitudeM = %v, want ~10000", obs.AltitudeM)
		}
		if obs.SpeedKmh == nil || math.Abs(*obs.SpeedKmh-185.2) > 1e-9 {
			t.Errorf("SpeedKmh = %v, want 185.2", obs.SpeedKmh)
		}
		if obs.VertRateMs == nil {
			t.Error("VertRateMs not derived")
		}
		if obs.Mlat != `["lat","lon"]` {
			t.Errorf("Mlat = %q", obs.Mlat)
		}
	})

	t.Run("blank callsign becomes absent", func(t *testing.T) {
		obs := ObservationFromAircraft(dump1090.Aircraft{Hex: "abc123", Flight: "   "}, at, "s")
		if obs.Callsign != nil {
			t.Errorf("Callsign = %q, want nil", *obs.Callsign)
		}
	})

	t.Run("missing optionals stay nil", func(t *testing.T) {
		obs := ObservationFromAircraft(dump1090.Aircraft{Hex: "abc123"}, at, "s")
		if obs.Lat != nil || obs.AltitudeFt != nil || obs.AltitudeM != nil ||
			obs.SpeedKt != nil || obs.VertRateFpm != nil || obs.Squawk != nil {
			t.Errorf("optional fields not nil: %+v", obs)
		}
		if obs.Mlat != "[]" || obs.Tisb != "[]" {
			t.Errorf("Mlat/Tisb = %q/%q, want empty arrays", obs.Mlat, obs.Tisb)
		}
	})
}

func TestProcessSnapshot(t *testing.T) {
	store := newTestStore(t)
	tracker := session.NewTracker(store, session.DefaultTimeout)
	ing := New(nil, store, tracker, discardLogger(), time.Second, false)

	ctx := context.Background()
	snap := &dump1090.Snapshot{
		Now:      1700000000,
		Messages: 100,
		Aircraft: []dump1090.Aircraft{
			{Hex: "abc123", Lat: f64Ptr(-33.9), Lon: f64Ptr(151.2), Altitude: altPtr(10000)},
			{Hex: ""}, // No address: skipped.
			{Hex: "def456"},
		},
	}

	ing.ProcessSnapshot(ctx, snap)

	observations, err := store.ListObservations(ctx, storage.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(observations) != 2 {
		t.Fatalf("got %d observations, want 2 (blank hex skipped)", len(observations))
	}

	want := time.Unix(1700000000, 0).UTC()
	for _, obs := range observations {
		if !obs.Timestamp.Equal(want) {
			t.Errorf("Timestamp = %v, want snapshot capture time %v", obs.Timestamp, want)
		}
		if obs.SessionID == "" {
			t.Errorf("observation for %s has no session", obs.Icao)
		}
	}
}

func TestProcessSnapshot_SessionContinuityAcrossCycles(t *testing.T) {
	store := newTestStore(t)
	tracker := session.NewTracker(store, session.DefaultTimeout)
	ing := New(nil, store, tracker, discardLogger(), time.Second, false)
	ctx := context.Background()

	first := &dump1090.Snapshot{Now: 1700000000, Aircraft: []dump1090.Aircraft{{Hex: "abc123"}}}
	second := &dump1090.Snapshot{Now: 1700000010, Aircraft: []dump1090.Aircraft{{Hex: "abc123"}}}
	// Third snapshot arrives after the session timeout.
	third := &dump1090.Snapshot{Now: 1700000010 + session.DefaultTimeout.Seconds(), Aircraft: []dump1090.Aircraft{{Hex: "abc123"}}}

	ing.ProcessSnapshot(ctx, first)
	ing.ProcessSnapshot(ctx, second)
	ing.ProcessSnapshot(ctx, third)

	observations, err := store.ListObservations(ctx, storage.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(observations) != 3 {
		t.Fatalf("got %d observations, want 3", len(observations))
	}
	if observations[0].SessionID != observations[1].SessionID {
		t.Error("observations 10s apart should share a session")
	}
	if observations[1].SessionID == observations[2].SessionID {
		t.Error("observation after the timeout should open a new session")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	tracker := session.NewTracker(store, session.DefaultTimeout)

	src := &staticSource{}
	ing := New(src, store, tracker, discardLogger(), 10*time.Millisecond, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

// staticSource always returns the same single-aircraft snapshot.
type staticSource struct{}

func (s *staticSource) Poll(ctx context.Context) (*dump1090.Snapshot, error) {
	return &dump1090.Snapshot{Now: 1700000000, Aircraft: []dump1090.Aircraft{{Hex: "abc123"}}}, nil
}

func (s *staticSource) Close() error { return nil }
