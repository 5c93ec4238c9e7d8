// Package geocode resolves coordinates to place names through the
// Nominatim reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "SituationalAwarenessSystem/1.0"
	maxBodyBytes     = 1 << 20
)

// Location is a reverse geocoding result. Missing parts are "Unknown".
type Location struct {
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	DisplayName string `json:"display_name"`
}

type cacheEntry struct {
	loc     Location
	expires time.Time
}

// Client reverse-geocodes coordinates. Results are cached per 0.01° cell
// because Nominatim allows about one request per second.
type Client struct {
	baseURL    string
	userAgent  string
	ttl        time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewClient creates a Client. A zero ttl disables caching.
func NewClient(baseURL, userAgent string, ttl, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "geocode"),
		now:        time.Now,
		cache:      make(map[string]cacheEntry),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Reverse returns the place at lat/lon.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Location, error) {
	key := cellKey(lat, lon)
	if loc, ok := c.cached(key); ok {
		return &loc, nil
	}

	loc, err := c.fetch(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.cache[key] = cacheEntry{loc: *loc, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return loc, nil
}

func (c *Client) cached(key string) (Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[key]
	if !ok {
		return Location{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.cache, key)
		return Location{}, false
	}
	return e.loc, true
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*Location, error) {
	const op = "geocode.reverse"

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("reverse geocoding: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailable(op, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	var rr reverseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&rr); err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("decoding response: %w", err))
	}

	a := rr.Address
	return &Location{
		City:        firstNonEmpty(a.City, a.Town, a.Village, "Unknown"),
		State:       firstNonEmpty(a.State, "Unknown"),
		Country:     firstNonEmpty(a.Country, "Unknown"),
		DisplayName: firstNonEmpty(rr.DisplayName, "Unknown location"),
	}, nil
}

// cellKey rounds to two decimals, roughly a 1 km cell.
func cellKey(lat, lon float64) string {
	r := func(v float64) string {
		return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
	}
	return r(lat) + "," + r(lon)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
