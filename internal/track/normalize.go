package track

import (
	"math"
	"strconv"
	"strings"

	"github.com/kkgkaundal/sas/internal/geo"
)

// AircraftRecord is one aircraft state vector as reported by a source.
// Pointer fields are nil when the source sent null.
type AircraftRecord struct {
	ICAO24         string
	Callsign       *string
	OriginCountry  *string
	Lat, Lon       *float64
	BaroAltitudeM  *float64
	GeoAltitudeM   *float64
	VelocityMS     *float64
	HeadingDeg     *float64
	VerticalRateMS *float64
}

// SatelliteRecord is a propagated sub-satellite point.
type SatelliteRecord struct {
	Name          string
	CatalogNumber int
	Lat, Lon      float64
	AltKm         float64
}

// CameraRecord is a fixed ground camera from the camera catalog.
type CameraRecord struct {
	ID       string
	Label    string
	Lat, Lon float64
	Endpoint string
}

// Result is the output of a normalization pass.
type Result struct {
	Tracks  []Track
	Dropped int
}

// NormalizeAircraft converts aircraft records into Tracks. Records without
// an id, without a coordinate, or with an out-of-range coordinate are
// dropped, as are repeated ids after the first.
//
// Altitude is the barometric altitude, falling back to geometric altitude,
// falling back to 0.
func NormalizeAircraft(recs []AircraftRecord) Result {
	out := Result{Tracks: make([]Track, 0, len(recs))}
	seen := make(map[string]struct{}, len(recs))

	for _, r := range recs {
		id := strings.ToLower(strings.TrimSpace(r.ICAO24))
		if id == "" || r.Lat == nil || r.Lon == nil || !geo.ValidCoordinate(*r.Lat, *r.Lon) {
			out.Dropped++
			continue
		}
		if _, dup := seen[id]; dup {
			out.Dropped++
			continue
		}
		seen[id] = struct{}{}

		alt := 0.0
		switch {
		case finite(r.BaroAltitudeM):
			alt = *r.BaroAltitudeM
		case finite(r.GeoAltitudeM):
			alt = *r.GeoAltitudeM
		}

		out.Tracks = append(out.Tracks, Track{
			ID:    id,
			Class: Aircraft,
			Lat:   *r.Lat,
			Lon:   *r.Lon,
			AltM:  alt,
			Attributes: Attributes{
				Callsign:       trimmed(r.Callsign),
				OriginCountry:  trimmed(r.OriginCountry),
				BaroAltitudeM:  finiteOrNil(r.BaroAltitudeM),
				VelocityMS:     finiteOrNil(r.VelocityMS),
				HeadingDeg:     finiteOrNil(r.HeadingDeg),
				VerticalRateMS: finiteOrNil(r.VerticalRateMS),
			},
		})
	}
	return out
}

// NormalizeSatellites converts propagated subpoints into Tracks, converting
// altitude from kilometers to meters. The id is the catalog name, or the
// catalog number when the name is empty.
func NormalizeSatellites(recs []SatelliteRecord) Result {
	out := Result{Tracks: make([]Track, 0, len(recs))}
	seen := make(map[string]struct{}, len(recs))

	for _, r := range recs {
		if !geo.ValidCoordinate(r.Lat, r.Lon) || !finite(&r.AltKm) {
			out.Dropped++
			continue
		}
		id := strings.TrimSpace(r.Name)
		if id == "" {
			id = strconv.Itoa(r.CatalogNumber)
		}
		if _, dup := seen[id]; dup {
			out.Dropped++
			continue
		}
		seen[id] = struct{}{}

		name := id
		catnr := r.CatalogNumber
		out.Tracks = append(out.Tracks, Track{
			ID:    id,
			Class: Satellite,
			Lat:   r.Lat,
			Lon:   r.Lon,
			AltM:  r.AltKm * 1000,
			Attributes: Attributes{
				Name:          &name,
				CatalogNumber: &catnr,
			},
		})
	}
	return out
}

// NormalizeCameras converts camera catalog entries into Tracks at ground
// level.
func NormalizeCameras(recs []CameraRecord) Result {
	out := Result{Tracks: make([]Track, 0, len(recs))}
	seen := make(map[string]struct{}, len(recs))

	for _, r := range recs {
		id := strings.TrimSpace(r.ID)
		if id == "" || !geo.ValidCoordinate(r.Lat, r.Lon) {
			out.Dropped++
			continue
		}
		if _, dup := seen[id]; dup {
			out.Dropped++
			continue
		}
		seen[id] = struct{}{}

		out.Tracks = append(out.Tracks, Track{
			ID:    id,
			Class: Camera,
			Lat:   r.Lat,
			Lon:   r.Lon,
			Attributes: Attributes{
				Location: nonEmpty(r.Label),
				Endpoint: nonEmpty(r.Endpoint),
			},
		})
	}
	return out
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func finiteOrNil(v *float64) *float64 {
	if !finite(v) {
		return nil
	}
	f := *v
	return &f
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return nonEmpty(*s)
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
