// Package snapshot holds the state published by each refresh cycle.
package snapshot

import (
	"time"

	"github.com/kkgkaundal/sas/internal/ledger"
	"github.com/kkgkaundal/sas/internal/proximity"
	"github.com/kkgkaundal/sas/internal/sources/geocode"
	"github.com/kkgkaundal/sas/internal/sources/traffic"
	"github.com/kkgkaundal/sas/internal/sources/weather"
	"github.com/kkgkaundal/sas/internal/track"
)

// SourceStatus reports how one source fared in a cycle.
type SourceStatus struct {
	Count      int    `json:"count"`
	Dropped    int    `json:"dropped"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Snapshot is the complete output of one refresh cycle. A published
// Snapshot is never modified; readers may share it freely.
type Snapshot struct {
	CycleID    string                  `json:"cycle_id"`
	Timestamp  time.Time               `json:"timestamp"`
	Aircraft   []track.Track           `json:"aircraft"`
	Satellites []track.Track           `json:"satellites"`
	Cameras    []track.Track           `json:"cameras"`
	Alerts     []proximity.Alert       `json:"alerts"`
	History    []ledger.Entry          `json:"history"`
	Sources    map[string]SourceStatus `json:"sources"`
	Weather    *weather.Conditions     `json:"weather"`
	Traffic    *traffic.Info           `json:"traffic"`
	Location   *geocode.Location       `json:"location"`
}

// Tracks returns the tracks of class c.
func (s *Snapshot) Tracks(c track.Class) []track.Track {
	switch c {
	case track.Aircraft:
		return s.Aircraft
	case track.Satellite:
		return s.Satellites
	case track.Camera:
		return s.Cameras
	}
	return nil
}

// Find returns the track of class c with the given id.
func (s *Snapshot) Find(c track.Class, id string) (track.Track, bool) {
	for _, t := range s.Tracks(c) {
		if t.ID == id {
			return t, true
		}
	}
	return track.Track{}, false
}
