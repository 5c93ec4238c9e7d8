package scheduler

import (
	"context"
	"time"

	"github.com/kkgkaundal/sas/internal/geo"
	"github.com/kkgkaundal/sas/internal/metrics"
	"github.com/kkgkaundal/sas/internal/propagation"
	"github.com/kkgkaundal/sas/internal/sources/geocode"
	"github.com/kkgkaundal/sas/internal/sources/opensky"
	"github.com/kkgkaundal/sas/internal/sources/traffic"
	"github.com/kkgkaundal/sas/internal/sources/weather"
	"github.com/kkgkaundal/sas/internal/tle"
	"github.com/kkgkaundal/sas/internal/track"
)

// AircraftSource reports aircraft state vectors inside a box.
type AircraftSource interface {
	States(ctx context.Context, bbox geo.BBox) (opensky.Result, error)
}

// OrbitalSource reports sub-satellite points at an instant.
type OrbitalSource interface {
	Satellites(ctx context.Context, at time.Time) ([]track.SatelliteRecord, error)
}

// WeatherSource reports current conditions at a point.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64, label string) (*weather.Conditions, error)
}

// Geocoder resolves a point to a place.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Location, error)
}

// Sources are the collaborators polled each cycle. A nil source is
// disabled and does not appear in the snapshot's source status.
type Sources struct {
	Aircraft AircraftSource
	Orbital  OrbitalSource
	Weather  WeatherSource
	Geocoder Geocoder
	Traffic  traffic.Provider
	Cameras  []track.CameraRecord
}

// Orbital combines the TLE provider with the propagator.
type Orbital struct {
	provider   *tle.Provider
	propagator *propagation.Propagator
}

// NewOrbital returns an OrbitalSource backed by provider and propagator.
func NewOrbital(provider *tle.Provider, propagator *propagation.Propagator) *Orbital {
	return &Orbital{provider: provider, propagator: propagator}
}

// Satellites returns the subpoints of every satellite with usable TLE data.
func (o *Orbital) Satellites(ctx context.Context, at time.Time) ([]track.SatelliteRecord, error) {
	ds, err := o.provider.Current(ctx)
	if err != nil {
		return nil, err
	}
	if age, ok := o.provider.Store().Age(time.Now()); ok {
		metrics.SetTLEDatasetAge(age.Seconds())
	}

	subs := o.propagator.Subpoints(ctx, ds, at)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs := make([]track.SatelliteRecord, 0, len(subs))
	for _, s := range subs {
		recs = append(recs, track.SatelliteRecord{
			Name:          s.Name,
			CatalogNumber: s.CatalogNumber,
			Lat:           s.LatDeg,
			Lon:           s.LonDeg,
			AltKm:         s.AltKm,
		})
	}
	return recs, nil
}
