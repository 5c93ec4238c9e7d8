// Package weather reads current conditions for the monitored area from the
// open-meteo forecast API.
package weather

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
	_ "time/tzdata" // timezone lookups in minimal containers

	"github.com/kkgkaundal/sas/internal/apperr"
)

const (
	defaultBaseURL = "https://api.open-meteo.com/v1"
	maxBodyBytes   = 1 << 20
)

// conditions maps WMO weather codes to display text. Codes not listed are
// reported as "Unknown".
var conditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Foggy",
	61: "Rain",
	63: "Rain",
	65: "Heavy rain",
	71: "Snow",
	73: "Snow",
	75: "Heavy snow",
	95: "Thunderstorm",
}

// Condition returns the display text for a WMO weather code.
func Condition(code int) string {
	if c, ok := conditions[code]; ok {
		return c
	}
	return "Unknown"
}

// Conditions is the current weather. Values the API did not return are nil.
type Conditions struct {
	TemperatureC     *float64  `json:"temperature"`
	HumidityPct      *float64  `json:"humidity"`
	WindSpeedKmh     *float64  `json:"wind_speed"`
	WindDirectionDeg *float64  `json:"wind_direction"`
	WeatherCode      *int      `json:"weather_code"`
	Condition        string    `json:"condition"`
	Location         string    `json:"location,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Client queries the forecast endpoint.
type Client struct {
	baseURL    string
	timezone   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. timezone is passed through to the API and
// controls the reported observation time.
func NewClient(baseURL, timezone string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timezone:   timezone,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "weather"),
	}
}

type forecastResponse struct {
	Current struct {
		Time             string   `json:"time"`
		Temperature      *float64 `json:"temperature_2m"`
		RelativeHumidity *float64 `json:"relative_humidity_2m"`
		WindSpeed        *float64 `json:"wind_speed_10m"`
		WindDirection    *float64 `json:"wind_direction_10m"`
		WeatherCode      *int     `json:"weather_code"`
	} `json:"current"`
}

// Current fetches conditions at lat/lon. label, if set, is copied into the
// result's Location.
func (c *Client) Current(ctx context.Context, lat, lon float64, label string) (*Conditions, error) {
	const op = "weather.current"

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,wind_direction_10m,weather_code")
	q.Set("timezone", c.timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("fetching weather: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailable(op, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	var fr forecastResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&fr); err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("decoding forecast: %w", err))
	}

	cur := fr.Current
	out := &Conditions{
		TemperatureC:     cur.Temperature,
		HumidityPct:      cur.RelativeHumidity,
		WindSpeedKmh:     cur.WindSpeed,
		WindDirectionDeg: cur.WindDirection,
		WeatherCode:      cur.WeatherCode,
		Condition:        "Unknown",
		Location:         label,
		ObservedAt:       time.Now().UTC(),
	}
	if cur.WeatherCode != nil {
		out.Condition = Condition(*cur.WeatherCode)
	}
	if cur.Time != "" {
		// open-meteo reports local time without a zone, e.g. 2025-01-01T10:15.
		if loc, err := time.LoadLocation(c.timezone); err == nil {
			if ts, err := time.ParseInLocation("2006-01-02T15:04", cur.Time, loc); err == nil {
				out.ObservedAt = ts.UTC()
			}
		}
	}

	c.logger.Debug("weather fetched", "condition", out.Condition)
	return out, nil
}
