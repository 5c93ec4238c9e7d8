package propagation

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/kkgkaundal/sas/internal/tle"
	"github.com/kkgkaundal/sas/internal/transform"
)

// Real ISS elements; they still propagate sensibly close to their epoch.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

const (
	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

var target = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// TestPropagateSingle checks the TEME radius and that the ECEF rotation
// preserves it.
func TestPropagateSingle(t *testing.T) {
	prop, err := NewSGP4Propagator(issLine1, issLine2, 25544)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}

	teme, err := prop.Propagate(target)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}

	// ISS orbits roughly 6371 + 420 km from the centre.
	mag := math.Sqrt(teme.X*teme.X + teme.Y*teme.Y + teme.Z*teme.Z)
	if mag < 6500 || mag > 7000 {
		t.Errorf("TEME position magnitude = %.1f km, expected ~6791 km", mag)
	}

	ecef := transform.TEMEToECEF(teme, target)
	if !transform.ValidateECEF(ecef) {
		t.Errorf("ECEF position failed validation: [%.1f, %.1f, %.1f] m", ecef.X, ecef.Y, ecef.Z)
	}
	ecefMag := math.Sqrt(ecef.X*ecef.X+ecef.Y*ecef.Y+ecef.Z*ecef.Z) / 1000.0
	if math.Abs(ecefMag-mag) > 0.01 {
		t.Errorf("ECEF magnitude = %.3f km, TEME magnitude = %.3f km", ecefMag, mag)
	}
}

// TestPropagateInvalidTLE verifies malformed lines never reach go-satellite.
func TestPropagateInvalidTLE(t *testing.T) {
	if _, err := NewSGP4Propagator("invalid line 1", "invalid line 2", 99999); err == nil {
		t.Fatal("expected error for invalid TLE, got nil")
	}
}

// TestSubpoints checks the subpoint is inside the orbit's latitude band and
// at a LEO altitude.
func TestSubpoints(t *testing.T) {
	ds := &tle.Dataset{Entries: []tle.Entry{
		{CatalogNumber: 44713, Name: "STARLINK-1007", Line1: starlinkLine1, Line2: starlinkLine2},
		{CatalogNumber: 25544, Name: "ISS (ZARYA)", Line1: issLine1, Line2: issLine2},
		{CatalogNumber: 1, Name: "BROKEN", Line1: "1 short", Line2: "2 short"},
	}}

	p := NewPropagator(Config{Workers: 2}, testLogger())
	subs := p.Subpoints(context.Background(), ds, target)
	if len(subs) != 2 {
		t.Fatalf("got %d subpoints, want 2", len(subs))
	}
	if subs[0].CatalogNumber != 25544 || subs[1].CatalogNumber != 44713 {
		t.Errorf("subpoints not sorted: %d, %d", subs[0].CatalogNumber, subs[1].CatalogNumber)
	}

	iss := subs[0]
	if iss.Name != "ISS (ZARYA)" {
		t.Errorf("name = %q", iss.Name)
	}
	if math.Abs(iss.LatDeg) > 52 {
		t.Errorf("ISS latitude %.2f outside ±51.64° inclination band", iss.LatDeg)
	}
	if iss.LonDeg < -180 || iss.LonDeg > 180 {
		t.Errorf("longitude out of range: %.2f", iss.LonDeg)
	}
	if iss.AltKm < 300 || iss.AltKm > 600 {
		t.Errorf("ISS altitude = %.1f km, expected LEO", iss.AltKm)
	}
}

// The propagator cache is reused until the dataset pointer changes.
func TestSubpointsCache(t *testing.T) {
	ds := &tle.Dataset{Entries: []tle.Entry{
		{CatalogNumber: 25544, Name: "ISS", Line1: issLine1, Line2: issLine2},
	}}
	p := NewPropagator(Config{Workers: 1}, testLogger())

	first := p.cachedProps(ds)
	if second := p.cachedProps(ds); second[25544] != first[25544] {
		t.Error("expected cached propagator to be reused")
	}

	next := &tle.Dataset{Entries: ds.Entries}
	if third := p.cachedProps(next); third[25544] == first[25544] {
		t.Error("expected rebuild for a new dataset")
	}
}

// TestWorkerPoolCancellation verifies the pool stops early on a cancelled
// context.
func TestWorkerPoolCancellation(t *testing.T) {
	pool := NewWorkerPool(2, testLogger())

	entries := make([]tle.Entry, 100)
	for i := range entries {
		entries[i] = tle.Entry{CatalogNumber: 25544 + i, Name: "TEST", Line1: issLine1, Line2: issLine2}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	subs, _, _ := pool.PropagateBatch(ctx, entries, target, nil)
	if len(subs) >= len(entries) {
		t.Errorf("expected fewer results with cancelled context, got %d/%d", len(subs), len(entries))
	}
}

// Nothing to propagate yields nothing.
func TestSubpointsEmpty(t *testing.T) {
	p := NewPropagator(Config{Workers: 2}, testLogger())
	if subs := p.Subpoints(context.Background(), nil, target); subs != nil {
		t.Errorf("got %v, want nil", subs)
	}
}

func BenchmarkPropagate1000(b *testing.B) {
	entries := make([]tle.Entry, 1000)
	for i := range entries {
		entries[i] = tle.Entry{CatalogNumber: 25544 + i, Name: "TEST", Line1: issLine1, Line2: issLine2}
	}
	ds := &tle.Dataset{Entries: entries}
	p := NewPropagator(Config{Workers: 4}, testLogger())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Subpoints(ctx, ds, target)
	}
}
