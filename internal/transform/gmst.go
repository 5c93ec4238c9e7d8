package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of 2000-01-01 12:00 TT.
const j2000 = 2451545.0

// OmegaEarth is the Earth's rotation rate in rad/s.
const OmegaEarth = 7.292115146706979e-5

// JulianDate returns the Julian Date of t, treated as UTC.
func JulianDate(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	frac := (float64(t.Hour()) +
		float64(t.Minute())/60.0 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600.0) / 24.0

	// January and February count as months 13 and 14 of the prior year.
	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5 + frac
}

// GMST returns Greenwich Mean Sidereal Time in radians, using the IAU-82
// polynomial (Vallado eq. 3-47) in seconds of time:
//
//	67310.54841 + (876600h + 8640184.812866)T + 0.093104T² − 6.2e-6T³
//
// with T in Julian centuries of UT1 since J2000.
func GMST(t time.Time) float64 {
	tu := (JulianDate(t.UTC()) - j2000) / 36525.0

	sec := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*tu +
		0.093104*tu*tu -
		6.2e-6*tu*tu*tu

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2 * math.Pi
}
