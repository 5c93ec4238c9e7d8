package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

// TestReverse checks the User-Agent header and the city fallbacks.
func TestReverse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Location
	}{
		{
			name: "city",
			body: `{"display_name": "Palwal, Haryana, India", "address": {"city": "Palwal", "state": "Haryana", "country": "India"}}`,
			want: Location{City: "Palwal", State: "Haryana", Country: "India", DisplayName: "Palwal, Haryana, India"},
		},
		{
			name: "village fallback",
			body: `{"display_name": "X", "address": {"village": "Hodal", "country": "India"}}`,
			want: Location{City: "Hodal", State: "Unknown", Country: "India", DisplayName: "X"},
		},
		{
			name: "empty",
			body: `{}`,
			want: Location{City: "Unknown", State: "Unknown", Country: "Unknown", DisplayName: "Unknown location"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ua := r.Header.Get("User-Agent"); ua != defaultUserAgent {
					t.Errorf("User-Agent = %q", ua)
				}
				if r.URL.Query().Get("format") != "json" {
					t.Errorf("missing format=json")
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewClient(srv.URL, "", time.Hour, 5*time.Second, testLogger).Reverse(context.Background(), 28.14, 77.32)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

// Nearby lookups share a cache cell until the TTL expires.
func TestReverseCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"address": {"city": "Palwal"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Minute, 5*time.Second, testLogger)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for _, p := range [][2]float64{{28.141, 77.321}, {28.139, 77.318}, {28.14, 77.32}} {
		if _, err := c.Reverse(ctx, p[0], p[1]); err != nil {
			t.Fatalf("Reverse: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}

	if _, err := c.Reverse(ctx, 28.20, 77.32); err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("requests after new cell = %d, want 2", hits.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Reverse(ctx, 28.14, 77.32); err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("requests after expiry = %d, want 3", hits.Load())
	}
}

func TestReverseHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Hour, 5*time.Second, testLogger).Reverse(context.Background(), 1, 2)
	if !errors.Is(err, apperr.ErrSourceUnavailable) {
		t.Errorf("expected SourceUnavailable, got %v", err)
	}
}

func TestCellKey(t *testing.T) {
	if a, b := cellKey(28.141, 77.321), cellKey(28.139, 77.318); a != b {
		t.Errorf("%s != %s", a, b)
	}
	if got := cellKey(-0.001, 0); got != "-0.00,0.00" && got != "0.00,0.00" {
		t.Errorf("cellKey near zero = %s", got)
	}
}
