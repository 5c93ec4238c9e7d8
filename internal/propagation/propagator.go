package propagation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kkgkaundal/sas/internal/metrics"
	"github.com/kkgkaundal/sas/internal/tle"
)

// sgp4Cache holds initialized propagators for one dataset. Immutable once
// stored.
type sgp4Cache struct {
	dataset *tle.Dataset
	props   map[int]*SGP4Propagator
}

// Propagator turns a TLE dataset into satellite subpoints.
type Propagator struct {
	pool   *WorkerPool
	logger *slog.Logger
	sgp4   atomic.Pointer[sgp4Cache]
	sgp4Mu sync.Mutex // serializes cache rebuilds
}

// NewPropagator creates a Propagator.
func NewPropagator(cfg Config, logger *slog.Logger) *Propagator {
	logger = logger.With("component", "propagation")
	return &Propagator{
		pool:   NewWorkerPool(cfg.Workers, logger),
		logger: logger,
	}
}

// cachedProps returns the propagators for ds, rebuilding them when the
// dataset has been replaced.
func (p *Propagator) cachedProps(ds *tle.Dataset) map[int]*SGP4Propagator {
	if c := p.sgp4.Load(); c != nil && c.dataset == ds {
		return c.props
	}

	p.sgp4Mu.Lock()
	defer p.sgp4Mu.Unlock()

	if c := p.sgp4.Load(); c != nil && c.dataset == ds {
		return c.props
	}

	props := make(map[int]*SGP4Propagator, len(ds.Entries))
	var skipped int
	for _, e := range ds.Entries {
		if _, ok := props[e.CatalogNumber]; ok {
			continue
		}
		sp, err := NewSGP4Propagator(e.Line1, e.Line2, e.CatalogNumber)
		if err != nil {
			p.logger.Warn("sgp4 init failed", "catalog_number", e.CatalogNumber, "error", err)
			metrics.RecordPropagationResult("invalid_tle")
			skipped++
			continue
		}
		props[e.CatalogNumber] = sp
	}

	p.logger.Info("sgp4 propagator cache rebuilt", "cached", len(props), "skipped", skipped)
	p.sgp4.Store(&sgp4Cache{dataset: ds, props: props})
	return props
}

// Subpoints propagates every satellite in ds to at. Satellites whose TLE
// cannot be initialized or propagated are omitted. The result is sorted by
// catalog number.
func (p *Propagator) Subpoints(ctx context.Context, ds *tle.Dataset, at time.Time) []Subpoint {
	if ds == nil || len(ds.Entries) == 0 {
		return nil
	}

	props := p.cachedProps(ds)
	entries := make([]tle.Entry, 0, len(props))
	for _, e := range ds.Entries {
		if _, ok := props[e.CatalogNumber]; ok {
			entries = append(entries, e)
		}
	}

	start := time.Now()
	subs, ok, failed := p.pool.PropagateBatch(ctx, entries, at, props)
	duration := time.Since(start)
	metrics.ObservePropagation(duration)

	p.logger.Debug("propagation complete",
		"success", ok,
		"errors", failed,
		"duration_ms", duration.Milliseconds(),
	)

	sort.Slice(subs, func(i, j int) bool { return subs[i].CatalogNumber < subs[j].CatalogNumber })
	return subs
}
