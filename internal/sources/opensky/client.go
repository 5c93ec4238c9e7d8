// Package opensky reads aircraft state vectors from the OpenSky Network
// REST API.
package opensky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
	"github.com/kkgkaundal/sas/internal/geo"
	"github.com/kkgkaundal/sas/internal/track"
)

const (
	defaultBaseURL = "https://opensky-network.org/api"
	maxBodyBytes   = 10 * 1024 * 1024
)

// State vector column indexes.
const (
	colICAO24        = 0
	colCallsign      = 1
	colOriginCountry = 2
	colLon           = 5
	colLat           = 6
	colBaroAltitude  = 7
	colVelocity      = 9
	colTrueTrack     = 10
	colVerticalRate  = 11
	colGeoAltitude   = 13

	// Rows shorter than this cannot carry a position and velocity.
	minColumns = colTrueTrack + 1
)

// Client queries /states/all.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client against baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "opensky"),
	}
}

type statesResponse struct {
	Time   int64             `json:"time"`
	States []json.RawMessage `json:"states"`
}

// Result is one fetch of state vectors.
type Result struct {
	Records []track.AircraftRecord
	// Skipped counts rows that were not arrays or were too short.
	Skipped int
}

// States fetches the state vectors inside bbox. Rows that are malformed are
// skipped and counted; rows with a null position are returned and left to
// the normalizer.
func (c *Client) States(ctx context.Context, bbox geo.BBox) (Result, error) {
	const op = "opensky.states"

	q := url.Values{}
	q.Set("lamin", formatDeg(bbox.MinLat))
	q.Set("lomin", formatDeg(bbox.MinLon))
	q.Set("lamax", formatDeg(bbox.MaxLat))
	q.Set("lomax", formatDeg(bbox.MaxLon))
	u := c.baseURL + "/states/all?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, apperr.Unavailable(op, fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, apperr.Unavailable(op, fmt.Errorf("fetching states: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, apperr.Unavailable(op, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Result{}, apperr.Unavailable(op, fmt.Errorf("reading response body: %w", err))
	}
	if len(body) > maxBodyBytes {
		return Result{}, apperr.Unavailable(op, fmt.Errorf("response exceeds %d byte limit", maxBodyBytes))
	}

	return c.parse(body)
}

func (c *Client) parse(body []byte) (Result, error) {
	var sr statesResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Result{}, apperr.Unavailable("opensky.parse", fmt.Errorf("decoding states: %w", err))
	}

	// "states" is null when no aircraft are in the box.
	out := Result{Records: make([]track.AircraftRecord, 0, len(sr.States))}
	for i, raw := range sr.States {
		rec, err := parseRow(raw)
		if err != nil {
			c.logger.Warn("skipping state vector", "row", i, "error", err)
			out.Skipped++
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func parseRow(raw json.RawMessage) (track.AircraftRecord, error) {
	var cols []json.RawMessage
	if err := json.Unmarshal(raw, &cols); err != nil {
		return track.AircraftRecord{}, apperr.Malformed("opensky.row", "not an array")
	}
	if len(cols) < minColumns {
		return track.AircraftRecord{}, apperr.Malformed("opensky.row", "%d columns, need %d", len(cols), minColumns)
	}

	icao := str(cols[colICAO24])
	if icao == nil {
		return track.AircraftRecord{}, apperr.Malformed("opensky.row", "missing icao24")
	}

	rec := track.AircraftRecord{
		ICAO24:         *icao,
		Callsign:       str(cols[colCallsign]),
		OriginCountry:  str(cols[colOriginCountry]),
		Lon:            num(cols[colLon]),
		Lat:            num(cols[colLat]),
		BaroAltitudeM:  num(cols[colBaroAltitude]),
		VelocityMS:     num(cols[colVelocity]),
		HeadingDeg:     num(cols[colTrueTrack]),
		VerticalRateMS: col(cols, colVerticalRate),
		GeoAltitudeM:   col(cols, colGeoAltitude),
	}
	return rec, nil
}

func col(cols []json.RawMessage, i int) *float64 {
	if i >= len(cols) {
		return nil
	}
	return num(cols[i])
}

// num decodes a JSON number; null or any other type yields nil.
func num(raw json.RawMessage) *float64 {
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// str decodes a JSON string; null or any other type yields nil.
func str(raw json.RawMessage) *string {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func formatDeg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
