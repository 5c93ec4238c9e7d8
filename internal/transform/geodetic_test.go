package transform

import (
	"math"
	"testing"
)

// geodeticToECEF is the closed-form inverse, used to check the iteration.
func geodeticToECEF(g Geodetic) (x, y, z float64) {
	lat := g.LatDeg * math.Pi / 180.0
	lon := g.LonDeg * math.Pi / 180.0
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)

	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	x = (n + g.AltM) * cosLat * math.Cos(lon)
	y = (n + g.AltM) * cosLat * math.Sin(lon)
	z = (n*(1-wgs84E2) + g.AltM) * sinLat
	return x, y, z
}

// Geodetic → ECEF → geodetic returns the starting point.
func TestGeodeticRoundTrip(t *testing.T) {
	tests := []Geodetic{
		{LatDeg: 0, LonDeg: 0, AltM: 0},
		{LatDeg: 28.14, LonDeg: 77.32, AltM: 250},
		{LatDeg: -33.9, LonDeg: 151.2, AltM: 420_000},
		{LatDeg: 51.64, LonDeg: -120, AltM: 35_786_000},
		{LatDeg: 89.9, LonDeg: 10, AltM: 800_000},
	}
	for _, g := range tests {
		x, y, z := geodeticToECEF(g)
		got := ECEFToGeodetic(x, y, z)
		if math.Abs(got.LatDeg-g.LatDeg) > 1e-7 || math.Abs(got.LonDeg-g.LonDeg) > 1e-7 {
			t.Errorf("round trip %+v: got lat/lon %.9f,%.9f", g, got.LatDeg, got.LonDeg)
		}
		if math.Abs(got.AltM-g.AltM) > 0.01 {
			t.Errorf("round trip %+v: got alt %.4f", g, got.AltM)
		}
	}
}

// Points on the axes land where expected.
func TestECEFToGeodeticAxes(t *testing.T) {
	eq := ECEFToGeodetic(wgs84A, 0, 0)
	if math.Abs(eq.LatDeg) > 1e-9 || math.Abs(eq.LonDeg) > 1e-9 || math.Abs(eq.AltM) > 1e-3 {
		t.Errorf("equator/prime meridian = %+v", eq)
	}

	east := ECEFToGeodetic(0, wgs84A+1000, 0)
	if math.Abs(east.LonDeg-90) > 1e-9 || math.Abs(east.AltM-1000) > 1e-3 {
		t.Errorf("90E at 1 km = %+v", east)
	}

	polarRadius := wgs84A * (1 - wgs84F)
	pole := ECEFToGeodetic(0, 0, polarRadius+500)
	if math.Abs(pole.LatDeg-90) > 1e-9 || math.Abs(pole.AltM-500) > 1e-3 {
		t.Errorf("north pole at 500 m = %+v", pole)
	}
}
