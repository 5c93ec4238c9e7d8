package propagation

import "time"

// Subpoint is a satellite's position over the WGS-84 ellipsoid at one
// instant.
type Subpoint struct {
	CatalogNumber int
	Name          string
	At            time.Time
	LatDeg        float64
	LonDeg        float64
	AltKm         float64
}

// Config holds propagation settings.
type Config struct {
	// Workers is the worker pool size (default: runtime.NumCPU()).
	Workers int
}
