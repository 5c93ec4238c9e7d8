package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kkgkaundal/sas/internal/camera"
	"github.com/kkgkaundal/sas/internal/config"
	"github.com/kkgkaundal/sas/internal/ledger"
	"github.com/kkgkaundal/sas/internal/proximity"
	"github.com/kkgkaundal/sas/internal/snapshot"
	"github.com/kkgkaundal/sas/internal/sources/geocode"
	"github.com/kkgkaundal/sas/internal/sources/traffic"
	"github.com/kkgkaundal/sas/internal/sources/weather"
	"github.com/kkgkaundal/sas/internal/track"
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type stats struct {
	TotalPlanes     int `json:"total_planes"`
	TotalSatellites int `json:"total_satellites"`
	TotalCameras    int `json:"total_cameras"`
	TotalAlerts     int `json:"total_alerts"`
}

type dataResponse struct {
	CycleID    *string                          `json:"cycle_id"`
	LastUpdate *string                          `json:"last_update"`
	AgeSeconds *float64                         `json:"age_seconds"`
	Aircraft   []track.Track                    `json:"aircraft"`
	Satellites []track.Track                    `json:"satellites"`
	Cameras    []track.Track                    `json:"cameras"`
	Alerts     []proximity.Alert                `json:"alerts"`
	History    []ledger.Entry                   `json:"history"`
	Sources    map[string]snapshot.SourceStatus `json:"sources"`
	Weather    *weather.Conditions              `json:"weather"`
	Traffic    *traffic.Info                    `json:"traffic"`
	Location   *geocode.Location                `json:"location"`
	Trend      map[proximity.Category][]int     `json:"trend"`
	Stats      stats                            `json:"stats"`
}

// data serves GET /api/data: the latest snapshot, or an empty document
// with a null last_update before the first cycle. trend carries the
// per-category alert counts of the retained history, oldest first.
func (h *handlers) data(w http.ResponseWriter, r *http.Request) {
	resp := dataResponse{
		Aircraft:   []track.Track{},
		Satellites: []track.Track{},
		Cameras:    []track.Track{},
		Alerts:     []proximity.Alert{},
		History:    []ledger.Entry{},
		Sources:    map[string]snapshot.SourceStatus{},
	}

	if snap := h.deps.Store.Get(); snap != nil {
		id := snap.CycleID
		ts := snap.Timestamp.UTC().Format(time.RFC3339)
		resp.CycleID = &id
		resp.LastUpdate = &ts
		if age := h.deps.Store.AgeSeconds(); age >= 0 {
			resp.AgeSeconds = &age
		}
		resp.Aircraft = orEmpty(snap.Aircraft)
		resp.Satellites = orEmpty(snap.Satellites)
		resp.Cameras = orEmpty(snap.Cameras)
		if snap.Alerts != nil {
			resp.Alerts = snap.Alerts
		}
		if snap.History != nil {
			resp.History = snap.History
		}
		if snap.Sources != nil {
			resp.Sources = snap.Sources
		}
		resp.Weather = snap.Weather
		resp.Traffic = snap.Traffic
		resp.Location = snap.Location
	}
	view := ledger.View{History: resp.History}
	resp.Trend = make(map[proximity.Category][]int, len(proximity.Categories))
	for _, c := range proximity.Categories {
		resp.Trend[c] = view.Counts(c)
	}
	resp.Stats = stats{
		TotalPlanes:     len(resp.Aircraft),
		TotalSatellites: len(resp.Satellites),
		TotalCameras:    len(resp.Cameras),
		TotalAlerts:     len(resp.Alerts),
	}
	writeJSON(w, http.StatusOK, resp)
}

func orEmpty(ts []track.Track) []track.Track {
	if ts == nil {
		return []track.Track{}
	}
	return ts
}

// cameraList serves GET /api/cameras/list.
func (h *handlers) cameraList(w http.ResponseWriter, r *http.Request) {
	cams := h.deps.Cameras.Cameras()
	if cams == nil {
		cams = []config.Camera{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cameras": cams,
		"total":   len(cams),
	})
}

type cameraResponse struct {
	config.Camera
	Status camera.Status `json:"status"`
}

// camera serves GET /api/camera/{id}.
func (h *handlers) camera(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cam, ok := h.deps.Cameras.Camera(id)
	if !ok {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	st, _ := h.deps.Cameras.Status(id)
	writeJSON(w, http.StatusOK, cameraResponse{Camera: cam, Status: st})
}

type objectResponse struct {
	Type         track.Class       `json:"type"`
	Data         track.Track       `json:"data"`
	LocationInfo *geocode.Location `json:"location_info,omitempty"`
	Stream       *camera.Status    `json:"stream,omitempty"`
}

// object serves GET /api/object/{class}/{id}.
func (h *handlers) object(w http.ResponseWriter, r *http.Request) {
	class, ok := track.ParseClass(r.PathValue("class"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown object class")
		return
	}
	id := r.PathValue("id")
	if class == track.Aircraft {
		id = strings.ToLower(id)
	}

	snap := h.deps.Store.Get()
	if snap == nil {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	t, ok := snap.Find(class, id)
	if !ok {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}

	resp := objectResponse{Type: class, Data: t}
	switch class {
	case track.Aircraft:
		if h.deps.Geocoder != nil {
			loc, err := h.deps.Geocoder.Reverse(r.Context(), t.Lat, t.Lon)
			if err != nil {
				h.logger.Debug("object geocode failed", "id", id, "error", err)
			} else {
				resp.LocationInfo = loc
			}
		}
	case track.Camera:
		if st, ok := h.deps.Cameras.Status(id); ok {
			resp.Stream = &st
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
