// Package track defines the normalized positional report shared by every
// stage of the refresh cycle, and the pure conversions from raw source
// records into it.
package track

import (
	"strings"
)

// Class tags what kind of entity a Track describes.
type Class string

const (
	Aircraft  Class = "AIRCRAFT"
	Satellite Class = "SATELLITE"
	Camera    Class = "CAMERA"
)

// ParseClass maps a URL or config spelling to a Class.
func ParseClass(s string) (Class, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aircraft", "plane", "planes":
		return Aircraft, true
	case "satellite", "satellites", "sat":
		return Satellite, true
	case "camera", "cameras", "cam":
		return Camera, true
	}
	return "", false
}

// Attributes holds the class-specific optional fields. A nil pointer means
// the source did not report the value. None of these feed distance math.
type Attributes struct {
	// Aircraft.
	Callsign       *string  `json:"callsign"`
	OriginCountry  *string  `json:"origin_country"`
	BaroAltitudeM  *float64 `json:"baro_altitude_m"`
	VelocityMS     *float64 `json:"velocity_ms"`
	HeadingDeg     *float64 `json:"heading_deg"`
	VerticalRateMS *float64 `json:"vertical_rate_ms"`

	// Satellite.
	Name          *string `json:"name,omitempty"`
	CatalogNumber *int    `json:"catalog_number,omitempty"`

	// Camera.
	Location *string `json:"location,omitempty"`
	Endpoint *string `json:"endpoint,omitempty"`
}

// Track is one observed entity at one instant. Lat/Lon are WGS84 degrees
// and always valid; AltM is meters above the common reference.
type Track struct {
	ID         string     `json:"id"`
	Class      Class      `json:"class"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	AltM       float64    `json:"alt_m"`
	Attributes Attributes `json:"attributes"`
}
