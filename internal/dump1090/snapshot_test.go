package dump1090

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFlexAltitude_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  FlexAltitude
	}{
		{"integer", `35000`, 35000},
		{"zero", `0`, 0},
		{"negative", `-50`, -50},
		{"ground string", `"ground"`, 0},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexAltitude
			err := json.Unmarshal([]byte(tt.input), &got)
			if err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FlexAltitude = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	data := []byte(`{
		"now": 1700000000.5,
		"messages": 123456,
		"aircraft": [
			{
				"hex": "abc123",
				"flight": "QFA123  ",
				"squawk": "3664",
				"lat": -33.8688,
				"lon": 151.2093,
				"altitude": 35000,
				"speed": 450,
				"track": 270,
				"vert_rate": -64,
				"messages": 512,
				"seen": 0.2,
				"rssi": -12.3,
				"mlat": [],
				"tisb": []
			},
			{
				"hex": "7c6db4",
				"altitude": "ground"
			},
			{
				"hex": "7c1234"
			}
		]
	}`)

	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if s.Messages != 123456 {
		t.Errorf("Messages = %d, want 123456", s.Messages)
	}
	if len(s.Aircraft) != 3 {
		t.Fatalf("Aircraft count = %d, want 3", len(s.Aircraft))
	}

	ac := s.Aircraft[0]
	if ac.Hex != "abc123" {
		t.Errorf("Hex = %q, want %q", ac.Hex, "abc123")
	}
	if ac.Flight != "QFA123  " {
		t.Errorf("Flight = %q, want raw padded callsign", ac.Flight)
	}
	if ac.Lat == nil || *ac.Lat != -33.8688 {
		t.Errorf("Lat = %v, want -33.8688", ac.Lat)
	}
	if ac.Altitude == nil || *ac.Altitude != 35000 {
		t.Errorf("Altitude = %v, want 35000", ac.Altitude)
	}
	if ac.VertRate == nil || *ac.VertRate != -64 {
		t.Errorf("VertRate = %v, want -64", ac.VertRate)
	}

	ground := s.Aircraft[1]
	if ground.Altitude == nil || *ground.Altitude != 0 {
		t.Errorf("ground Altitude = %v, want 0", ground.Altitude)
	}

	bare := s.Aircraft[2]
	if bare.Lat != nil || bare.Altitude != nil || bare.Speed != nil {
		t.Errorf("bare aircraft should have nil optional fields: %+v", bare)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte(`{"aircraft": [`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestConversions(t *testing.T) {
	if got := FeetToMeters(32808); math.Abs(got-9999.9) > 0.5 {
		t.Errorf("FeetToMeters(32808) = %f, want ~10000", got)
	}
	if got := KnotsToKmh(100); math.Abs(got-185.2) > 0.001 {
		t.Errorf("KnotsToKmh(100) = %f, want 185.2", got)
	}
	if got := FpmToMs(1968); math.Abs(got-10.0) > 0.01 {
		t.Errorf("FpmToMs(1968) = %f, want ~10", got)
	}
}
