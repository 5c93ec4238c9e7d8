package tle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
)

func newTestProvider(t *testing.T, url string, cache *Cache, now time.Time) *Provider {
	t.Helper()
	p := NewProvider(Config{
		CatalogNumbers:  []int{25544},
		RefreshInterval: time.Hour,
		MaxAge:          72 * time.Hour,
	}, NewFetcher(url, 2*time.Second, testLogger), cache, NewStore(), testLogger)
	p.now = func() time.Time { return now }
	return p
}

// The dataset is reused until the refresh interval passes.
func TestProviderRefreshInterval(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(issTLE))
	}))
	defer server.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := newTestProvider(t, server.URL, nil, now)

	for i := 0; i < 3; i++ {
		ds, err := p.Current(context.Background())
		if err != nil {
			t.Fatalf("Current: %v", err)
		}
		if len(ds.Entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(ds.Entries))
		}
	}
	if hits.Load() != 1 {
		t.Errorf("fetches = %d, want 1", hits.Load())
	}

	p.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := p.Current(context.Background()); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("fetches after interval = %d, want 2", hits.Load())
	}
}

// A failed fetch falls back to a cached element set younger than max age,
// and reports SourceUnavailable once the cache is too old.
func TestProviderCacheFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	fetched := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := cache.Put(25544, []byte(issTLE), fetched); err != nil {
		t.Fatalf("Put: %v", err)
	}

	p := newTestProvider(t, server.URL, cache, fetched.Add(24*time.Hour))
	ds, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(ds.Entries) != 1 || !ds.Entries[0].Cached {
		t.Fatalf("expected one cached entry, got %+v", ds.Entries)
	}

	stale := newTestProvider(t, server.URL, cache, fetched.Add(100*time.Hour))
	_, err = stale.Current(context.Background())
	if !errors.Is(err, apperr.ErrSourceUnavailable) {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
}

// Warm loads fresh cache entries without marking the dataset as refreshed.
func TestProviderWarm(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	if err := cache.Put(25544, []byte(issTLE), now.Add(-time.Hour)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	p := newTestProvider(t, "http://127.0.0.1:0", cache, now)
	if n := p.Warm(); n != 1 {
		t.Fatalf("Warm = %d, want 1", n)
	}
	if ds := p.Store().Get(); ds == nil || !ds.RefreshedAt.IsZero() {
		t.Errorf("unexpected warmed dataset: %+v", ds)
	}
}
