// Package geo holds the spherical-earth geometry used by proximity
// classification: great-circle distance and surface vectors.
package geo

import "math"

// EarthRadiusM is the mean Earth radius used for all horizontal distances.
const EarthRadiusM = 6371000.0

const degToRad = math.Pi / 180.0

// Haversine returns the great-circle distance in meters between two
// latitude/longitude points given in degrees.
//
// The result is symmetric in its arguments and exactly 0 for identical
// points; the atan2 form has no singularity at zero separation.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sLat := math.Sin(dLat / 2)
	sLon := math.Sin(dLon / 2)
	a := sLat*sLat + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*sLon*sLon

	// Rounding can push a a hair outside [0, 1] for antipodal points.
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// ValidCoordinate reports whether lat/lon are finite and inside
// [-90, 90] x [-180, 180].
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// SurfaceVector returns the point on the sphere of radius EarthRadiusM
// under lat/lon, as Earth-centred Cartesian meters.
//
// The straight-line (chord) distance between two surface vectors never
// exceeds the haversine distance between the same points.
func SurfaceVector(lat, lon float64) [3]float64 {
	phi := lat * degToRad
	lambda := lon * degToRad
	cosPhi := math.Cos(phi)
	return [3]float64{
		EarthRadiusM * cosPhi * math.Cos(lambda),
		EarthRadiusM * cosPhi * math.Sin(lambda),
		EarthRadiusM * math.Sin(phi),
	}
}

// BBox is a latitude/longitude rectangle in degrees.
type BBox struct {
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
}

// Contains reports whether lat/lon falls inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Valid reports whether the box is well-formed.
func (b BBox) Valid() bool {
	return ValidCoordinate(b.MinLat, b.MinLon) && ValidCoordinate(b.MaxLat, b.MaxLon) &&
		b.MinLat < b.MaxLat && b.MinLon < b.MaxLon
}
