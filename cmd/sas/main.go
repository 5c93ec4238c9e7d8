package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/common/version"

	"github.com/kkgkaundal/sas/internal/api"
	"github.com/kkgkaundal/sas/internal/camera"
	"github.com/kkgkaundal/sas/internal/config"
	"github.com/kkgkaundal/sas/internal/ledger"
	"github.com/kkgkaundal/sas/internal/logging"
	"github.com/kkgkaundal/sas/internal/observability"
	"github.com/kkgkaundal/sas/internal/propagation"
	"github.com/kkgkaundal/sas/internal/proximity"
	"github.com/kkgkaundal/sas/internal/scheduler"
	"github.com/kkgkaundal/sas/internal/snapshot"
	"github.com/kkgkaundal/sas/internal/sources/geocode"
	"github.com/kkgkaundal/sas/internal/sources/opensky"
	"github.com/kkgkaundal/sas/internal/sources/traffic"
	"github.com/kkgkaundal/sas/internal/sources/weather"
	"github.com/kkgkaundal/sas/internal/stream"
	"github.com/kkgkaundal/sas/internal/tle"
	"github.com/kkgkaundal/sas/internal/track"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $SAS_CONFIG)")
	printVersion := flag.Bool("version", false, "Print this build's version information")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Print("sas"))
		os.Exit(0)
	}

	// Config warnings go to a bootstrap logger until the real one exists.
	boot := logging.NewLogger("info", "json", os.Stdout)
	cfg, err := config.Load(*configPath, boot)
	if err != nil {
		boot.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, os.Stdout, logger)
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	sources, geocoder, closeSources := buildSources(cfg, logger)
	defer closeSources()

	camCfg := camera.Config{
		MaxRetries:     cfg.Stream.MaxRetries,
		FrameInterval:  cfg.Stream.FrameInterval,
		DegradedDelay:  cfg.Stream.DegradedDelay,
		OfflineDelay:   cfg.Stream.OfflineDelay,
		IdleTimeout:    cfg.Stream.IdleTimeout,
		ConnectTimeout: cfg.Stream.ConnectTimeout,
		ReadTimeout:    cfg.Stream.ReadTimeout,
		JPEGQuality:    cfg.Stream.JPEGQuality,
		Overlay:        cfg.Stream.Overlay,
	}
	frameSource, err := camera.NewSource(cfg.Stream.Backend, cfg.Stream.ConnectTimeout, logger)
	if err != nil {
		logger.Error("camera backend unavailable", "backend", cfg.Stream.Backend, "error", err)
		os.Exit(1)
	}
	cameras := camera.NewManager(camCfg, cfg.Cameras.List, frameSource, nil, logger)
	defer cameras.Close()

	streamHandler := stream.NewHandler(cameras, stream.Config{
		MaxConcurrentPerIP: cfg.Stream.MaxConcurrentPerIP,
		MaxConcurrent:      cfg.Stream.MaxConcurrent,
		FrameInterval:      cfg.Stream.FrameInterval,
		TrustProxy:         cfg.Server.TrustProxy,
	}, logger)

	store := snapshot.NewStore()
	sched := scheduler.New(scheduler.Config{
		Interval:      cfg.Refresh.Interval,
		SourceTimeout: cfg.Refresh.SourceTimeout,
		BBox:          cfg.Area.BBox,
		AreaName:      cfg.Area.Name,
		CenterLat:     cfg.Area.CenterLat,
		CenterLon:     cfg.Area.CenterLon,
	}, sources,
		proximity.NewClassifier(proximity.DefaultRules, logger),
		ledger.New(cfg.Refresh.HistorySize),
		store, logger)

	deps := api.Deps{
		Store:   store,
		Cameras: cameras,
		Video:   streamHandler.HandleVideo,
	}
	if geocoder != nil {
		deps.Geocoder = geocoder
	}
	srv := api.NewServer(cfg.Server.Addr, cfg.Server.TrustProxy, deps, logger)

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Addr,
			"version", version.Version,
			"cameras", len(cfg.Cameras.List),
			"camera_backend", cfg.Stream.Backend,
			"refresh_interval", cfg.Refresh.Interval.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Video responses only end when the client leaves, so a timed out
	// Shutdown is followed by a hard Close.
	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete, closing connections", "error", err)
		srv.HTTPServer().Close()
	}
	cameras.Close()
	<-schedDone

	logger.Info("server stopped")
}

// buildSources constructs the enabled data sources. The geocoder is also
// returned concretely so a disabled one stays a nil interface in api.Deps.
// The returned func releases anything that holds files open.
func buildSources(cfg *config.Config, logger *slog.Logger) (scheduler.Sources, *geocode.Client, func()) {
	var src scheduler.Sources
	var gc *geocode.Client
	closers := []func(){}

	if cfg.OpenSky.Enabled {
		src.Aircraft = opensky.NewClient(cfg.OpenSky.BaseURL, cfg.OpenSky.Timeout, logger)
	}

	if cfg.Celestrak.Enabled {
		cache, err := tle.OpenCache(cfg.Celestrak.CachePath)
		if err != nil {
			logger.Warn("TLE cache unavailable, continuing without it", "path", cfg.Celestrak.CachePath, "error", err)
			cache = nil
		} else {
			closers = append(closers, func() { cache.Close() })
		}
		provider := tle.NewProvider(tle.Config{
			CatalogNumbers:  cfg.Celestrak.CatalogNumbers,
			RefreshInterval: cfg.Celestrak.RefreshInterval,
			MaxAge:          cfg.Celestrak.MaxAge,
		}, tle.NewFetcher(cfg.Celestrak.BaseURL, cfg.Celestrak.Timeout, logger), cache, tle.NewStore(), logger)
		if n := provider.Warm(); n > 0 {
			logger.Info("loaded TLE data from cache", "count", n)
		}
		prop := propagation.NewPropagator(propagation.Config{Workers: cfg.Celestrak.Workers}, logger)
		src.Orbital = scheduler.NewOrbital(provider, prop)
	}

	if cfg.Weather.Enabled {
		src.Weather = weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timezone, cfg.Weather.Timeout, logger)
	}
	if cfg.Geocode.Enabled {
		gc = geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.TTL, cfg.Geocode.Timeout, logger)
		src.Geocoder = gc
	}
	if cfg.Traffic.Enabled {
		src.Traffic = traffic.NewSimulated()
	}

	src.Cameras = make([]track.CameraRecord, 0, len(cfg.Cameras.List))
	for _, c := range cfg.Cameras.List {
		src.Cameras = append(src.Cameras, track.CameraRecord{
			ID:       c.ID,
			Label:    c.Label,
			Lat:      c.Lat,
			Lon:      c.Lon,
			Endpoint: c.Endpoint,
		})
	}

	logger.Info("sources configured",
		"opensky", cfg.OpenSky.Enabled,
		"celestrak", cfg.Celestrak.Enabled,
		"weather", cfg.Weather.Enabled,
		"geocode", cfg.Geocode.Enabled,
		"traffic", cfg.Traffic.Enabled,
		"catalog_numbers", cfg.Celestrak.CatalogNumbers,
	)

	return src, gc, func() {
		for _, c := range closers {
			c()
		}
	}
}
