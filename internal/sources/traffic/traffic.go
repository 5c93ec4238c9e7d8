// Package traffic supplies road traffic conditions for the monitored area.
package traffic

import (
	"context"
	"time"
)

// Info summarizes traffic in the monitored area.
type Info struct {
	Status          string    `json:"status"`
	CongestionLevel int       `json:"congestion_level"`
	Incidents       int       `json:"incidents"`
	AvgSpeedKmh     int       `json:"avg_speed"`
	RoadsMonitored  int       `json:"roads_monitored"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Provider returns current traffic conditions.
type Provider interface {
	Current(ctx context.Context) (*Info, error)
}

// Simulated is a fixed Provider for deployments without a traffic feed.
type Simulated struct {
	now func() time.Time
}

// NewSimulated returns a Simulated provider.
func NewSimulated() *Simulated {
	return &Simulated{now: time.Now}
}

// Current returns a moderate-traffic reading.
func (s *Simulated) Current(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Info{
		Status:          "moderate",
		CongestionLevel: 45,
		Incidents:       2,
		AvgSpeedKmh:     42,
		RoadsMonitored:  15,
		UpdatedAt:       s.now().UTC(),
	}, nil
}
