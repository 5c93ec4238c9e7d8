package proximity

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/kkgkaundal/sas/internal/track"
)

var cycle = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClassifier() *Classifier {
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return NewClassifier(DefaultRules, logger)
}

func plane(id string, lat, lon, alt float64) track.Track {
	return track.Track{ID: id, Class: track.Aircraft, Lat: lat, Lon: lon, AltM: alt}
}

func sat(id string, lat, lon, alt float64) track.Track {
	return track.Track{ID: id, Class: track.Satellite, Lat: lat, Lon: lon, AltM: alt}
}

// Two nearby aircraft with small vertical separation are critical.
func TestAircraftPairCritical(t *testing.T) {
	c := newTestClassifier()
	alerts := c.Classify([]track.Track{
		plane("b2", 28.14, 77.33, 1500),
		plane("a1", 28.14, 77.32, 1000),
	}, nil, cycle)

	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Category != AircraftAircraft || a.Severity != Critical {
		t.Errorf("got %s/%s, want AIRCRAFT_AIRCRAFT/CRITICAL", a.Category, a.Severity)
	}
	if a.SubjectIDs != [2]string{"a1", "b2"} {
		t.Errorf("subject ids = %v, want canonical order", a.SubjectIDs)
	}
	if a.VerticalM != 500 {
		t.Errorf("vertical = %v, want 500", a.VerticalM)
	}
	if !a.CycleTimestamp.Equal(cycle) {
		t.Errorf("cycle timestamp = %v", a.CycleTimestamp)
	}
}

// Threshold edge cases across the three rules.
func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		name  string
		air   []track.Track
		sats  []track.Track
		want  Category
		count int
	}{
		{
			name:  "aircraft far apart",
			air:   []track.Track{plane("a", 28.14, 77.32, 1000), plane("b", 28.30, 77.32, 1000)},
			count: 0,
		},
		{
			name:  "aircraft close but vertically separated",
			air:   []track.Track{plane("a", 28.14, 77.32, 1000), plane("b", 28.14, 77.33, 2000)},
			count: 0,
		},
		{
			name:  "satellites close horizontally but 50 km apart vertically",
			sats:  []track.Track{sat("s1", 10, 10, 400_000), sat("s2", 10.045, 10, 450_000)},
			count: 0,
		},
		{
			name:  "satellites within both limits",
			sats:  []track.Track{sat("s1", 10, 10, 400_000), sat("s2", 10.5, 10, 405_000)},
			want:  SatelliteSatellite,
			count: 1,
		},
		{
			name:  "aircraft under satellite ignores altitude",
			air:   []track.Track{plane("a", 10, 10, 10_000)},
			sats:  []track.Track{sat("s", 10.36, 10, 420_000)},
			want:  AircraftSatellite,
			count: 1,
		},
		{
			name:  "aircraft beyond satellite ground track radius",
			air:   []track.Track{plane("a", 10, 10, 10_000)},
			sats:  []track.Track{sat("s", 10.5, 10, 420_000)},
			count: 0,
		},
		{
			name:  "coincident aircraft",
			air:   []track.Track{plane("a", 5, 5, 100), plane("b", 5, 5, 100)},
			want:  AircraftAircraft,
			count: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := newTestClassifier().Classify(tt.air, tt.sats, cycle)
			if len(alerts) != tt.count {
				t.Fatalf("got %d alerts, want %d: %+v", len(alerts), tt.count, alerts)
			}
			for _, a := range alerts {
				if a.Category != tt.want {
					t.Errorf("category = %s, want %s", a.Category, tt.want)
				}
				if math.IsNaN(a.HorizontalM) || math.IsNaN(a.VerticalM) {
					t.Errorf("non-finite separation in %+v", a)
				}
			}
		})
	}
}

// Aircraft-satellite alerts are info level and name the plane first.
func TestAircraftSatelliteInfo(t *testing.T) {
	alerts := newTestClassifier().Classify(
		[]track.Track{plane("zz9", 0, 0, 0)},
		[]track.Track{sat("ISS (ZARYA)", 0.36, 0, 420_000)},
		cycle,
	)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Severity != Info {
		t.Errorf("severity = %s, want INFO", a.Severity)
	}
	if a.SubjectIDs != [2]string{"ISS (ZARYA)", "zz9"} {
		t.Errorf("subject ids = %v", a.SubjectIDs)
	}
	if a.Message != "Plane zz9 under ISS (ZARYA) ground track" {
		t.Errorf("message = %q", a.Message)
	}
}

// Invalid tracks and tracks of other classes are excluded without
// affecting the rest.
func TestClassifyExcludesInvalid(t *testing.T) {
	air := []track.Track{
		plane("a", 28.14, 77.32, 1000),
		plane("b", 28.14, 77.33, 1200),
		plane("nan", math.NaN(), 77.32, 1000),
		plane("inf", 28.14, 77.32, math.Inf(1)),
		{ID: "cam", Class: track.Camera, Lat: 28.14, Lon: 77.32},
	}
	alerts := newTestClassifier().Classify(air, nil, cycle)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %+v", len(alerts), alerts)
	}
	if alerts[0].SubjectIDs != [2]string{"a", "b"} {
		t.Errorf("subject ids = %v", alerts[0].SubjectIDs)
	}
}

// Separation is exactly symmetric and zero for identical tracks.
func TestSeparationSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		a := plane("a", rng.Float64()*180-90, rng.Float64()*360-180, rng.Float64()*12000)
		b := plane("b", rng.Float64()*180-90, rng.Float64()*360-180, rng.Float64()*12000)
		h1, v1 := Separation(a, b)
		h2, v2 := Separation(b, a)
		if h1 != h2 || v1 != v2 {
			t.Fatalf("asymmetric: (%v,%v) vs (%v,%v)", h1, v1, h2, v2)
		}
		if h, v := Separation(a, a); h != 0 || v != 0 {
			t.Fatalf("self separation = %v,%v", h, v)
		}
	}
}

// The indexed classifier agrees with a brute-force scan.
func TestClassifyMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var air []track.Track
	for i := 0; i < 120; i++ {
		air = append(air, plane(
			string(rune('a'+i%26))+string(rune('a'+i/26)),
			28+rng.Float64()*0.5, 77+rng.Float64()*0.5, rng.Float64()*3000,
		))
	}

	want := 0
	for i := range air {
		for j := i + 1; j < len(air); j++ {
			h, v := Separation(air[i], air[j])
			if DefaultRules.AircraftAircraft.match(h, v) {
				want++
			}
		}
	}

	got := newTestClassifier().Classify(air, nil, cycle)
	if len(got) != want {
		t.Errorf("indexed classifier found %d alerts, brute force %d", len(got), want)
	}
}
