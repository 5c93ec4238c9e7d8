// Package scheduler runs the refresh cycle: fetch every source concurrently,
// normalize, classify, record and publish a new snapshot.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kkgkaundal/sas/internal/geo"
	"github.com/kkgkaundal/sas/internal/ledger"
	"github.com/kkgkaundal/sas/internal/metrics"
	"github.com/kkgkaundal/sas/internal/observability"
	"github.com/kkgkaundal/sas/internal/proximity"
	"github.com/kkgkaundal/sas/internal/snapshot"
	"github.com/kkgkaundal/sas/internal/sources/geocode"
	"github.com/kkgkaundal/sas/internal/sources/traffic"
	"github.com/kkgkaundal/sas/internal/sources/weather"
	"github.com/kkgkaundal/sas/internal/track"
)

// Source names used in snapshot status, logs and metrics.
const (
	SourceAircraft   = "aircraft"
	SourceSatellites = "satellites"
	SourceWeather    = "weather"
	SourceLocation   = "location"
	SourceTraffic    = "traffic"
	SourceCameras    = "cameras"
)

// Config holds refresh settings.
type Config struct {
	Interval      time.Duration
	SourceTimeout time.Duration
	BBox          geo.BBox
	AreaName      string
	CenterLat     float64
	CenterLon     float64
}

// Scheduler owns the refresh loop. It is the only writer of the store.
type Scheduler struct {
	cfg        Config
	src        Sources
	classifier *proximity.Classifier
	ledger     *ledger.Ledger
	store      *snapshot.Store
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// New creates a Scheduler.
func New(cfg Config, src Sources, classifier *proximity.Classifier, led *ledger.Ledger, store *snapshot.Store, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 10 * time.Second
	}
	return &Scheduler{
		cfg:        cfg,
		src:        src,
		classifier: classifier,
		ledger:     led,
		store:      store,
		logger:     logger.With("component", "scheduler"),
		tracer:     observability.Tracer(),
		now:        time.Now,
	}
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. Cycles run back to back on this goroutine and never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("refresh scheduler started", "interval", s.cfg.Interval.String())

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Cycle(ctx); err != nil {
			s.logger.Info("refresh cycle abandoned", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// fetched holds the raw output of the fetch stage.
type fetched struct {
	aircraft   []track.AircraftRecord
	skipped    int
	satellites []track.SatelliteRecord
	weather    *weather.Conditions
	location   *geocode.Location
	traffic    *traffic.Info
	status     map[string]snapshot.SourceStatus
}

// Cycle runs one fetch, normalize, classify and publish pass and returns
// the published snapshot. It returns an error only when ctx is cancelled
// before publishing, in which case the store is left untouched.
func (s *Scheduler) Cycle(ctx context.Context) (*snapshot.Snapshot, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "refresh.cycle")
	defer span.End()

	f := s.fetch(ctx, start)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		metrics.RecordCycle("abandoned", time.Since(start))
		return nil, err
	}

	aircraft := track.NormalizeAircraft(f.aircraft)
	satellites := track.NormalizeSatellites(f.satellites)
	cameras := track.NormalizeCameras(s.src.Cameras)
	s.finishStatus(f.status, SourceAircraft, len(aircraft.Tracks), aircraft.Dropped+f.skipped)
	s.finishStatus(f.status, SourceSatellites, len(satellites.Tracks), satellites.Dropped)
	s.finishStatus(f.status, SourceCameras, len(cameras.Tracks), cameras.Dropped)

	_, cspan := s.tracer.Start(ctx, "refresh.classify")
	alerts := s.classifier.Classify(aircraft.Tracks, satellites.Tracks, start)
	view := s.ledger.Record(start, len(aircraft.Tracks), len(satellites.Tracks), alerts)
	cspan.SetAttributes(attribute.Int("alerts", len(alerts)))
	cspan.End()

	snap := &snapshot.Snapshot{
		CycleID:    uuid.NewString(),
		Timestamp:  start,
		Aircraft:   aircraft.Tracks,
		Satellites: satellites.Tracks,
		Cameras:    cameras.Tracks,
		Alerts:     view.LatestAlerts,
		History:    view.History,
		Sources:    f.status,
		Weather:    f.weather,
		Traffic:    f.traffic,
		Location:   f.location,
	}

	_, pspan := s.tracer.Start(ctx, "refresh.publish")
	s.store.Set(snap)
	pspan.End()

	s.observe(snap)
	duration := time.Since(start)
	metrics.RecordCycle("ok", duration)
	span.SetAttributes(
		attribute.String("cycle_id", snap.CycleID),
		attribute.Int("aircraft", len(snap.Aircraft)),
		attribute.Int("satellites", len(snap.Satellites)),
		attribute.Int("alerts", len(snap.Alerts)),
	)
	s.logger.Info("refresh cycle complete",
		"cycle_id", snap.CycleID,
		"aircraft", len(snap.Aircraft),
		"satellites", len(snap.Satellites),
		"cameras", len(snap.Cameras),
		"alerts", len(snap.Alerts),
		"duration_ms", duration.Milliseconds(),
	)
	return snap, nil
}

// fetch polls every enabled source concurrently and joins them. A failing
// source contributes nothing; the others are unaffected.
func (s *Scheduler) fetch(ctx context.Context, at time.Time) *fetched {
	f := &fetched{status: make(map[string]snapshot.SourceStatus)}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	run := func(name string, fn func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := s.fetchOne(ctx, name, fn)
			mu.Lock()
			f.status[name] = st
			mu.Unlock()
		}()
	}

	if src := s.src.Aircraft; src != nil {
		run(SourceAircraft, func(ctx context.Context) error {
			res, err := src.States(ctx, s.cfg.BBox)
			if err != nil {
				return err
			}
			f.aircraft, f.skipped = res.Records, res.Skipped
			return nil
		})
	}
	if src := s.src.Orbital; src != nil {
		run(SourceSatellites, func(ctx context.Context) error {
			recs, err := src.Satellites(ctx, at)
			if err != nil {
				return err
			}
			f.satellites = recs
			return nil
		})
	}
	if src := s.src.Weather; src != nil {
		run(SourceWeather, func(ctx context.Context) error {
			w, err := src.Current(ctx, s.cfg.CenterLat, s.cfg.CenterLon, s.cfg.AreaName)
			if err != nil {
				return err
			}
			f.weather = w
			return nil
		})
	}
	if src := s.src.Geocoder; src != nil {
		run(SourceLocation, func(ctx context.Context) error {
			loc, err := src.Reverse(ctx, s.cfg.CenterLat, s.cfg.CenterLon)
			if err != nil {
				return err
			}
			f.location = loc
			return nil
		})
	}
	if src := s.src.Traffic; src != nil {
		run(SourceTraffic, func(ctx context.Context) error {
			t, err := src.Current(ctx)
			if err != nil {
				return err
			}
			f.traffic = t
			return nil
		})
	}

	wg.Wait()
	if s.src.Cameras != nil {
		f.status[SourceCameras] = snapshot.SourceStatus{OK: true}
	}
	return f
}

// fetchOne runs fn under the per-source timeout and reports its status.
func (s *Scheduler) fetchOne(ctx context.Context, name string, fn func(context.Context) error) snapshot.SourceStatus {
	ctx, span := s.tracer.Start(ctx, "refresh.fetch."+name)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	st := snapshot.SourceStatus{OK: err == nil, DurationMS: time.Since(start).Milliseconds()}

	if err != nil {
		result := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
		st.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		metrics.RecordSourceFetch(name, result)
		s.logger.Warn("source fetch failed, using empty set",
			"source", name,
			"result", result,
			"duration_ms", st.DurationMS,
			"error", err,
		)
		return st
	}
	metrics.RecordSourceFetch(name, "ok")
	return st
}

// finishStatus fills in the normalized counts for a source that ran.
func (s *Scheduler) finishStatus(status map[string]snapshot.SourceStatus, name string, count, dropped int) {
	st, ok := status[name]
	if !ok {
		return
	}
	st.Count, st.Dropped = count, dropped
	status[name] = st
	metrics.SetSourceRecords(name, count)
	if dropped > 0 {
		s.logger.Debug("records dropped during normalization", "source", name, "dropped", dropped)
	}
}

func (s *Scheduler) observe(snap *snapshot.Snapshot) {
	metrics.SetTracks("aircraft", len(snap.Aircraft))
	metrics.SetTracks("satellite", len(snap.Satellites))
	metrics.SetTracks("camera", len(snap.Cameras))

	byCat := make(map[proximity.Category]int, len(proximity.Categories))
	for _, a := range snap.Alerts {
		byCat[a.Category]++
	}
	for _, c := range proximity.Categories {
		metrics.SetAlerts(string(c), byCat[c])
	}
}
