package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int { return &i }

func testObservation(icao, session string, ts time.Time) Observation {
	return Observation{
		SessionID:  session,
		Icao:       icao,
		Timestamp:  ts,
		Lat:        f64Ptr(-33.9),
		Lon:        f64Ptr(151.2),
		AltitudeFt: intPtr(10000),
		AltitudeM:  f64Ptr(3048),
	}
}

func TestSQLiteStore_InsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	obs := testObservation("ABC123", "sess-1", base)
	obs.Callsign = strPtr("QFA123")
	obs.Squawk = strPtr("3664")
	obs.SpeedKt = intPtr(450)
	obs.SpeedKmh = f64Ptr(833.4)
	obs.Track = intPtr(270)
	obs.VertRateFpm = intPtr(-64)
	obs.RSSI = f64Ptr(-12.3)
	obs.Mlat = "[]"

	if err := s.Insert(ctx, obs); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.ListObservations(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ListObservations: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d observations, want 1", len(got))
	}

	o := got[0]
	if o.ID == 0 {
		t.Error("ID not assigned on insert")
	}
	if o.Icao != "ABC123" || o.SessionID != "sess-1" {
		t.Errorf("identity roundtrip: %+v", o)
	}
	if !o.Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", o.Timestamp, base)
	}
	if o.Callsign == nil || *o.Callsign != "QFA123" {
		t.Errorf("Callsign = %v, want QFA123", o.Callsign)
	}
	if o.SpeedKt == nil || *o.SpeedKt != 450 {
		t.Errorf("SpeedKt = %v, want 450", o.SpeedKt)
	}
	if o.VertRateFpm == nil || *o.VertRateFpm != -64 {
		t.Errorf("VertRateFpm = %v, want -64", o.VertRateFpm)
	}
	if o.VertRateMs != nil {
		t.Errorf("VertRateMs should stay nil, got %v", *o.VertRateMs)
	}
	if o.Mlat != "[]" {
		t.Errorf("Mlat = %q, want []", o.Mlat)
	}
}

func TestSQLiteStore_LatestForIcao(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Insert(ctx, testObservation("ABC123", "sess-1", base)); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, testObservation("ABC123", "sess-1", base.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, testObservation("DEF456", "sess-2", base.Add(2*time.Minute))); err != nil {
		t.Fatal(err)
	}

	t.Run("latest by timestamp", func(t *testing.T) {
		got, err := s.LatestForIcao(ctx, "ABC123")
		if err != nil {
			t.Fatalf("LatestForIcao: %v", err)
		}
		if got == nil {
			t.Fatal("got nil, want observation")
		}
		if !got.Timestamp.Equal(base.Add(time.Minute)) {
			t.Errorf("Timestamp = %v, want %v", got.Timestamp, base.Add(time.Minute))
		}
	})

	t.Run("unknown icao returns nil", func(t *testing.T) {
		got, err := s.LatestForIcao(ctx, "FFFFFF")
		if err != nil {
			t.Fatalf("LatestForIcao: %v", err)
		}
		if got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})

	t.Run("equal timestamps resolved by insertion order", func(t *testing.T) {
		dup := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
		first := testObservation("ABC123", "sess-1", dup)
		second := testObservation("ABC123", "sess-3", dup)
		if err := s.Insert(ctx, first); err != nil {
			t.Fatal(err)
		}
		if err := s.Insert(ctx, second); err != nil {
			t.Fatal(err)
		}

		got, err := s.LatestForIcao(ctx, "ABC123")
		if err != nil {
			t.Fatalf("LatestForIcao: %v", err)
		}
		if got.SessionID != "sess-3" {
			t.Errorf("SessionID = %s, want sess-3 (last inserted wins)", got.SessionID)
		}
	})
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// A positioned low observation, a positioned high one, and one with no
	// position at all.
	low := testObservation("ABC123", "sess-1", base)
	high := testObservation("ABC123", "sess-1", base.Add(time.Minute))
	high.AltitudeFt = intPtr(35000)
	high.AltitudeM = f64Ptr(10668)
	bare := Observation{SessionID: "sess-1", Icao: "ABC123", Timestamp: base.Add(2 * time.Minute)}
	other := testObservation("DEF456", "sess-2", base.Add(3*time.Minute))

	for _, o := range []Observation{low, high, bare, other} {
		if err := s.Insert(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("with position excludes unpositioned", func(t *testing.T) {
		got, err := s.ListObservations(ctx, ListFilter{WithPosition: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Errorf("got %d observations, want 3", len(got))
		}
		for _, o := range got {
			if !o.HasPosition() {
				t.Errorf("unpositioned observation leaked: %+v", o)
			}
		}
	})

	t.Run("max altitude", func(t *testing.T) {
		got, err := s.ListObservations(ctx, ListFilter{WithPosition: true, MaxAltitudeM: f64Ptr(5000)})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("got %d observations, want 2", len(got))
		}
	})

	t.Run("icao filter", func(t *testing.T) {
		got, err := s.ListObservations(ctx, ListFilter{Icao: "DEF456"})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Icao != "DEF456" {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("ordering is timestamp then insertion", func(t *testing.T) {
		got, err := s.ListObservations(ctx, ListFilter{})
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			if cur.Timestamp.Before(prev.Timestamp) {
				t.Fatalf("timestamps out of order at %d", i)
			}
			if cur.Timestamp.Equal(prev.Timestamp) && cur.ID < prev.ID {
				t.Fatalf("insertion order tie-break violated at %d", i)
			}
		}
	})
}
