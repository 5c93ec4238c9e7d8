package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
)

const (
	defaultBaseURL = "https://celestrak.org/NORAD/elements/gp.php"

	// maxBodyBytes bounds a single-satellite response. A real one is
	// under 200 bytes.
	maxBodyBytes = 64 * 1024
)

// Fetcher retrieves raw TLE text for individual catalog numbers.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher against the CelesTrak GP endpoint at baseURL.
func NewFetcher(baseURL string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "tle_fetcher"),
	}
}

// URL returns the request URL for one catalog number.
func (f *Fetcher) URL(catalog int) string {
	q := url.Values{}
	q.Set("CATNR", strconv.Itoa(catalog))
	q.Set("FORMAT", "TLE")
	return f.baseURL + "?" + q.Encode()
}

// Fetch performs an HTTP GET for one catalog number and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, catalog int) ([]byte, error) {
	const op = "tle.fetch"
	u := f.URL(catalog)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("creating request: %w", err))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("fetching TLE %d: %w", catalog, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailable(op, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, u))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, apperr.Unavailable(op, fmt.Errorf("reading response body: %w", err))
	}
	if len(body) > maxBodyBytes {
		return nil, apperr.Unavailable(op, fmt.Errorf("response exceeds %d byte limit", maxBodyBytes))
	}

	f.logger.Debug("fetched TLE", "catalog_number", catalog, "bytes", len(body))
	return body, nil
}
