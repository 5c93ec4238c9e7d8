package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kkgkaundal/sas/internal/metrics"
	"github.com/kkgkaundal/sas/internal/tle"
	"github.com/kkgkaundal/sas/internal/transform"
)

type job struct {
	entry tle.Entry
	prop  *SGP4Propagator // nil: build from the entry
	at    time.Time
	gmst  float64
}

type result struct {
	sub     Subpoint
	catalog int
	err     error
}

// WorkerPool runs SGP4 propagation on a fixed number of goroutines.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a pool of the given size (minimum 1).
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{workers: workers, logger: logger}
}

// PropagateBatch propagates every entry to at. props may hold prebuilt
// propagators keyed by catalog number. Failed satellites are logged and left
// out of the result.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, entries []tle.Entry, at time.Time, props map[int]*SGP4Propagator) (subs []Subpoint, ok, failed int) {
	if len(entries) == 0 {
		return nil, 0, 0
	}

	gmst := transform.GMST(at)
	jobs := make(chan job, wp.workers*2)
	results := make(chan result, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case results <- propagateOne(j):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, e := range entries {
			select {
			case jobs <- job{entry: e, prop: props[e.CatalogNumber], at: at, gmst: gmst}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	subs = make([]Subpoint, 0, len(entries))
	for r := range results {
		if r.err != nil {
			failed++
			metrics.RecordPropagationResult("error")
			wp.logger.Warn("propagation failed", "catalog_number", r.catalog, "error", r.err)
			continue
		}
		ok++
		metrics.RecordPropagationResult("ok")
		subs = append(subs, r.sub)
	}
	return subs, ok, failed
}

// propagateOne runs SGP4, rotates into ECEF and converts to geodetic.
func propagateOne(j job) result {
	catalog := j.entry.CatalogNumber
	prop := j.prop
	if prop == nil {
		var err error
		prop, err = NewSGP4Propagator(j.entry.Line1, j.entry.Line2, catalog)
		if err != nil {
			return result{catalog: catalog, err: err}
		}
	}

	teme, err := prop.Propagate(j.at)
	if err != nil {
		return result{catalog: catalog, err: err}
	}

	ecef := transform.TEMEToECEFWithGMST(teme, j.gmst)
	g := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)

	return result{
		catalog: catalog,
		sub: Subpoint{
			CatalogNumber: catalog,
			Name:          j.entry.Name,
			At:            j.at,
			LatDeg:        g.LatDeg,
			LonDeg:        g.LonDeg,
			AltKm:         g.AltM / 1000.0,
		},
	}
}
