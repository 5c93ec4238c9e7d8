package spatial

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kkgkaundal/sas/internal/geo"
	"github.com/kkgkaundal/sas/internal/track"
)

func randomTracks(rng *rand.Rand, n int, lat0, lon0, spread float64) []track.Track {
	out := make([]track.Track, n)
	for i := range out {
		out[i] = track.Track{
			Lat: lat0 + (rng.Float64()*2-1)*spread,
			Lon: lon0 + (rng.Float64()*2-1)*spread,
		}
	}
	return out
}

func bruteSelf(tracks []track.Track, r float64) []Pair {
	var out []Pair
	for i := range tracks {
		for j := i + 1; j < len(tracks); j++ {
			if geo.Haversine(tracks[i].Lat, tracks[i].Lon, tracks[j].Lat, tracks[j].Lon) <= r {
				out = append(out, Pair{I: i, J: j})
			}
		}
	}
	return out
}

func bruteCross(a, b []track.Track, r float64) []Pair {
	var out []Pair
	for i := range a {
		for j := range b {
			if geo.Haversine(a[i].Lat, a[i].Lon, b[j].Lat, b[j].Lon) <= r {
				out = append(out, Pair{I: i, J: j})
			}
		}
	}
	return out
}

func asSet(pairs []Pair) map[Pair]bool {
	m := make(map[Pair]bool, len(pairs))
	for _, p := range pairs {
		m[p] = true
	}
	return m
}

// Every pair within the radius by haversine must be among the candidates.
func TestSelfPairsSuperset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		tracks := randomTracks(rng, 150, 18.5, 73.8, 0.5)
		const r = 10_000.0

		got := asSet(SelfPairs(tracks, r))
		for _, want := range bruteSelf(tracks, r) {
			if !got[want] {
				t.Fatalf("trial %d: missing pair %+v", trial, want)
			}
		}
		for p := range got {
			if p.I >= p.J {
				t.Fatalf("pair not ordered: %+v", p)
			}
			d := geo.Haversine(tracks[p.I].Lat, tracks[p.I].Lon, tracks[p.J].Lat, tracks[p.J].Lon)
			if d > r*1.01+slackM {
				t.Fatalf("candidate %+v too far: %.1f m", p, d)
			}
		}
	}
}

// Cross queries return exactly the haversine pairs for small radii.
func TestCrossPairsSuperset(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := randomTracks(rng, 80, 10, 20, 2)
	b := randomTracks(rng, 120, 10, 20, 2)
	const r = 50_000.0

	got := asSet(CrossPairs(a, b, r))
	for _, want := range bruteCross(a, b, r) {
		if !got[want] {
			t.Fatalf("missing cross pair %+v", want)
		}
	}
}

// Pairs are reported once and in index order.
func TestSelfPairsDeterministic(t *testing.T) {
	tracks := []track.Track{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
		{Lat: 40, Lon: 40},
		{Lat: 0, Lon: 0.002},
	}
	got := SelfPairs(tracks, 1000)
	want := []Pair{{0, 1}, {0, 3}, {1, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
}

// Degenerate inputs produce no pairs.
func TestPairsEmptyInputs(t *testing.T) {
	one := []track.Track{{Lat: 1, Lon: 1}}
	if got := SelfPairs(one, 1000); got != nil {
		t.Errorf("SelfPairs(one) = %v, want nil", got)
	}
	if got := SelfPairs(nil, 1000); got != nil {
		t.Errorf("SelfPairs(nil) = %v, want nil", got)
	}
	if got := CrossPairs(one, nil, 1000); got != nil {
		t.Errorf("CrossPairs(one, nil) = %v, want nil", got)
	}
}

// Points straddling the antimeridian are still found.
func TestCrossPairsAntimeridian(t *testing.T) {
	a := []track.Track{{Lat: 0, Lon: 179.9999}}
	b := []track.Track{{Lat: 0, Lon: -179.9999}}
	got := CrossPairs(a, b, 1000)
	if diff := cmp.Diff([]Pair{{0, 0}}, got); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
}
