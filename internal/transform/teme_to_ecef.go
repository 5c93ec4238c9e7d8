// Package transform converts SGP4 output into Earth-fixed and geodetic
// coordinates.
//
// TEME is rotated into ECEF about the Z axis by GMST alone (TEME → PEF),
// ignoring polar motion and the equation of the equinoxes. The resulting
// error is tens of meters, far below the proximity thresholds.
package transform

import (
	"math"
	"time"
)

// PositionTEME is an SGP4 state vector in km and km/s.
type PositionTEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// PositionECEF is an Earth-fixed state vector in m and m/s.
type PositionECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// TEMEToECEF rotates a TEME state into ECEF at UTC time t.
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates a TEME state into ECEF by the given GMST angle
// in radians. Callers propagating many satellites to one instant compute
// GMST once and pass it here.
//
//	r_ecef = R3(θ) r_teme
//	v_ecef = R3(θ) v_teme − ω × r_ecef
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	c, s := math.Cos(gmst), math.Sin(gmst)

	x := teme.X*c + teme.Y*s
	y := -teme.X*s + teme.Y*c
	z := teme.Z

	vx := teme.VX*c + teme.VY*s + OmegaEarth*y
	vy := -teme.VX*s + teme.VY*c - OmegaEarth*x
	vz := teme.VZ

	const km = 1000.0
	return PositionECEF{
		X: x * km, Y: y * km, Z: z * km,
		VX: vx * km, VY: vy * km, VZ: vz * km,
	}
}

// ValidateECEF reports whether pos is finite and between 6,200 km and
// 50,000 km from the Earth's centre, the band SGP4 results must fall in.
func ValidateECEF(pos PositionECEF) bool {
	for _, v := range []float64{pos.X, pos.Y, pos.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	const (
		minRadius = 6200e3
		maxRadius = 50000e3
	)
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	return mag >= minRadius && mag <= maxRadius
}
