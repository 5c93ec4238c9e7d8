package tle

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
	"github.com/kkgkaundal/sas/internal/metrics"
)

// Config controls how often element sets are refetched and how long a
// cached one stays usable.
type Config struct {
	CatalogNumbers  []int
	RefreshInterval time.Duration
	MaxAge          time.Duration
}

// Provider keeps the Store filled for a fixed list of catalog numbers.
// CelesTrak throttles clients that poll too often, so a refresh happens at
// most once per RefreshInterval; in between, Current returns the stored
// dataset.
type Provider struct {
	cfg     Config
	fetcher *Fetcher
	cache   *Cache
	store   *Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewProvider wires a fetcher, an optional persistent cache and a store.
func NewProvider(cfg Config, fetcher *Fetcher, cache *Cache, store *Store, logger *slog.Logger) *Provider {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 2 * time.Hour
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 72 * time.Hour
	}
	return &Provider{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   cache,
		store:   store,
		logger:  logger.With("component", "tle_provider"),
		now:     time.Now,
	}
}

// Store returns the backing store.
func (p *Provider) Store() *Store {
	return p.store
}

// Current returns a dataset no older than RefreshInterval, refreshing it
// first if needed. It fails with SourceUnavailable only when no satellite
// has a usable element set.
func (p *Provider) Current(ctx context.Context) (*Dataset, error) {
	if ds, ok := p.store.Fresh(p.now(), p.cfg.RefreshInterval); ok {
		return ds, nil
	}

	p.store.refresh.Lock()
	defer p.store.refresh.Unlock()

	// Another caller may have refreshed while we waited.
	if ds, ok := p.store.Fresh(p.now(), p.cfg.RefreshInterval); ok {
		return ds, nil
	}
	return p.refresh(ctx)
}

func (p *Provider) refresh(ctx context.Context) (*Dataset, error) {
	prev := p.store.Get()
	now := p.now()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		entries []Entry
		errs    []error
	)
	for _, catalog := range p.cfg.CatalogNumbers {
		wg.Add(1)
		go func(catalog int) {
			defer wg.Done()
			e, err := p.one(ctx, catalog, prev, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			entries = append(entries, e)
		}(catalog)
	}
	wg.Wait()

	sort.Slice(entries, func(i, j int) bool { return entries[i].CatalogNumber < entries[j].CatalogNumber })

	if len(entries) == 0 {
		err := apperr.Unavailable("tle.refresh", errors.Join(errs...))
		if len(p.cfg.CatalogNumbers) == 0 {
			err = apperr.Unavailable("tle.refresh", errors.New("no catalog numbers configured"))
		}
		return nil, err
	}

	ds := &Dataset{
		RefreshedAt: now,
		EpochRange:  epochRange(entries),
		Entries:     entries,
	}
	p.store.Set(ds)
	metrics.SetTLEDatasetAge(0)
	p.logger.Info("TLE dataset refreshed",
		"count", len(entries),
		"failed", len(errs),
		"epoch_min", ds.EpochRange.Min.Format(time.RFC3339),
		"epoch_max", ds.EpochRange.Max.Format(time.RFC3339),
	)
	return ds, nil
}

// one fetches a single element set, falling back to the previous dataset
// and then to the persistent cache when the fetch or parse fails.
func (p *Provider) one(ctx context.Context, catalog int, prev *Dataset, now time.Time) (Entry, error) {
	raw, err := p.fetcher.Fetch(ctx, catalog)
	if err == nil {
		var e Entry
		e, err = ParseOne(raw, catalog, p.logger)
		if err == nil {
			e.FetchedAt = now
			metrics.RecordTLEFetch("ok")
			if p.cache != nil {
				if cerr := p.cache.Put(catalog, raw, now); cerr != nil {
					p.logger.Warn("failed to write TLE cache", "catalog_number", catalog, "error", cerr)
				}
			}
			return e, nil
		}
	}

	p.logger.Warn("TLE fetch failed, trying cache", "catalog_number", catalog, "error", err)

	if prev != nil {
		if e, ok := prev.Lookup(catalog); ok && now.Sub(e.FetchedAt) < p.cfg.MaxAge {
			e.Cached = true
			metrics.RecordTLEFetch("cached")
			return e, nil
		}
	}

	if p.cache != nil {
		cached, fetchedAt, ok, cerr := p.cache.Get(catalog)
		switch {
		case cerr != nil:
			p.logger.Warn("failed to read TLE cache", "catalog_number", catalog, "error", cerr)
		case ok && now.Sub(fetchedAt) < p.cfg.MaxAge:
			e, perr := ParseOne(cached, catalog, p.logger)
			if perr == nil {
				e.FetchedAt = fetchedAt
				e.Cached = true
				metrics.RecordTLEFetch("cached")
				return e, nil
			}
			p.logger.Warn("cached TLE unparseable", "catalog_number", catalog, "error", perr)
		case ok:
			p.logger.Info("cached TLE too old", "catalog_number", catalog, "fetched_at", fetchedAt.Format(time.RFC3339))
		}
	}

	metrics.RecordTLEFetch("error")
	return Entry{}, err
}

// Warm loads every cached element set younger than MaxAge into the store so
// satellites are available before the first successful fetch.
func (p *Provider) Warm() int {
	if p.cache == nil {
		return 0
	}
	now := p.now()
	var entries []Entry
	for _, catalog := range p.cfg.CatalogNumbers {
		raw, fetchedAt, ok, err := p.cache.Get(catalog)
		if err != nil || !ok || now.Sub(fetchedAt) >= p.cfg.MaxAge {
			continue
		}
		e, err := ParseOne(raw, catalog, p.logger)
		if err != nil {
			continue
		}
		e.FetchedAt = fetchedAt
		e.Cached = true
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		p.logger.Info("no usable TLE cache entries, starting without TLE data")
		return 0
	}

	// RefreshedAt is left zero so the first Current call still fetches.
	p.store.Set(&Dataset{EpochRange: epochRange(entries), Entries: entries})
	p.logger.Info("loaded TLE data from cache", "count", len(entries))
	return len(entries)
}
