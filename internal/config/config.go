// Package config loads service settings from defaults, an optional YAML
// file and SAS_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kkgkaundal/sas/internal/geo"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Area      AreaConfig      `yaml:"area"`
	OpenSky   OpenSkyConfig   `yaml:"opensky"`
	Celestrak CelestrakConfig `yaml:"celestrak"`
	Weather   WeatherConfig   `yaml:"weather"`
	Geocode   GeocodeConfig   `yaml:"geocode"`
	Traffic   TrafficConfig   `yaml:"traffic"`
	Cameras   CamerasConfig   `yaml:"cameras"`
	Stream    StreamConfig    `yaml:"stream"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// TrustProxy makes client IPs come from X-Forwarded-For / X-Real-IP.
	TrustProxy      bool          `yaml:"trust_proxy"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RefreshConfig controls the refresh cycle.
type RefreshConfig struct {
	Interval      time.Duration `yaml:"interval"`
	SourceTimeout time.Duration `yaml:"source_timeout"`
	HistorySize   int           `yaml:"history_size"`
}

// AreaConfig is the monitored area.
type AreaConfig struct {
	Name      string   `yaml:"name"`
	BBox      geo.BBox `yaml:"bbox"`
	CenterLat float64  `yaml:"center_lat"`
	CenterLon float64  `yaml:"center_lon"`
}

// OpenSkyConfig configures the aircraft source.
type OpenSkyConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CelestrakConfig configures TLE retrieval and propagation.
type CelestrakConfig struct {
	Enabled         bool          `yaml:"enabled"`
	BaseURL         string        `yaml:"base_url"`
	CatalogNumbers  []int         `yaml:"catalog_numbers"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	MaxAge          time.Duration `yaml:"max_age"`
	CachePath       string        `yaml:"cache_path"`
	Timeout         time.Duration `yaml:"timeout"`
	Workers         int           `yaml:"workers"`
}

// WeatherConfig configures the weather source.
type WeatherConfig struct {
	Enabled  bool          `yaml:"enabled"`
	BaseURL  string        `yaml:"base_url"`
	Timezone string        `yaml:"timezone"`
	Timeout  time.Duration `yaml:"timeout"`
}

// GeocodeConfig configures reverse geocoding.
type GeocodeConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	TTL       time.Duration `yaml:"ttl"`
	Timeout   time.Duration `yaml:"timeout"`
}

// TrafficConfig toggles the simulated traffic provider.
type TrafficConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CamerasConfig lists the fixed cameras. When CSVFile is set it replaces
// List.
type CamerasConfig struct {
	CSVFile string   `yaml:"csv_file"`
	List    []Camera `yaml:"list"`
}

// Camera is one catalog entry.
type Camera struct {
	ID       string  `yaml:"id" csv:"id" json:"id"`
	Label    string  `yaml:"label" csv:"label" json:"label"`
	Lat      float64 `yaml:"lat" csv:"lat" json:"lat"`
	Lon      float64 `yaml:"lon" csv:"lon" json:"lon"`
	Endpoint string  `yaml:"endpoint" csv:"endpoint" json:"endpoint"`
}

// StreamConfig controls camera sessions and MJPEG delivery.
type StreamConfig struct {
	Backend        string        `yaml:"backend"`
	MaxRetries     int           `yaml:"max_retries"`
	FrameInterval  time.Duration `yaml:"frame_interval"`
	DegradedDelay  time.Duration `yaml:"degraded_delay"`
	OfflineDelay   time.Duration `yaml:"offline_delay"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ReadTimeout is how long a session waits for the next frame before
	// treating the camera as stalled.
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	JPEGQuality        int           `yaml:"jpeg_quality"`
	Overlay            bool          `yaml:"overlay"`
	MaxConcurrentPerIP int           `yaml:"max_concurrent_per_ip"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// Load builds a Config. path falls back to $SAS_CONFIG; an empty path means
// defaults and environment only. Bad environment values are logged and
// ignored; a bad file or an invalid result is an error.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		path = os.Getenv("SAS_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg, logger)

	if cfg.Cameras.CSVFile != "" {
		cams, err := LoadCamerasFile(cfg.Cameras.CSVFile)
		if err != nil {
			return nil, err
		}
		cfg.Cameras.List = cams
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Refresh: RefreshConfig{
			Interval:      30 * time.Second,
			SourceTimeout: 10 * time.Second,
			HistorySize:   10,
		},
		Area: AreaConfig{
			Name:      "Palwal, Haryana",
			BBox:      geo.BBox{MinLat: 27.0, MinLon: 76.0, MaxLat: 29.0, MaxLon: 78.0},
			CenterLat: 28.14,
			CenterLon: 77.32,
		},
		OpenSky: OpenSkyConfig{
			Enabled: true,
			BaseURL: "https://opensky-network.org/api",
			Timeout: 10 * time.Second,
		},
		Celestrak: CelestrakConfig{
			Enabled:         true,
			BaseURL:         "https://celestrak.org/NORAD/elements/gp.php",
			CatalogNumbers:  []int{25544, 48274},
			RefreshInterval: 2 * time.Hour,
			MaxAge:          72 * time.Hour,
			CachePath:       filepath.Join(os.TempDir(), "sas", "tle.db"),
			Timeout:         10 * time.Second,
			Workers:         runtime.NumCPU(),
		},
		Weather: WeatherConfig{
			Enabled:  true,
			BaseURL:  "https://api.open-meteo.com/v1",
			Timezone: "Asia/Kolkata",
			Timeout:  10 * time.Second,
		},
		Geocode: GeocodeConfig{
			Enabled:   true,
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "SituationalAwarenessSystem/1.0",
			TTL:       time.Hour,
			Timeout:   10 * time.Second,
		},
		Traffic: TrafficConfig{Enabled: true},
		Cameras: CamerasConfig{List: DefaultCameras()},
		Stream: StreamConfig{
			Backend:            "mjpeg",
			MaxRetries:         3,
			FrameInterval:      100 * time.Millisecond,
			DegradedDelay:      500 * time.Millisecond,
			OfflineDelay:       3 * time.Second,
			IdleTimeout:        60 * time.Second,
			ConnectTimeout:     10 * time.Second,
			ReadTimeout:        5 * time.Second,
			JPEGQuality:        75,
			Overlay:            true,
			MaxConcurrentPerIP: 10,
			MaxConcurrent:      1000,
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			Endpoint:    "localhost:4317",
			Insecure:    true,
			SampleRatio: 1.0,
			ServiceName: "sas",
		},
	}
}

// DefaultCameras is the demo camera catalog.
func DefaultCameras() []Camera {
	const base = "http://commondatastorage.googleapis.com/gtv-videos-bucket/sample/"
	return []Camera{
		{ID: "0", Label: "Demo Test Stream 1", Lat: 28.14, Lon: 77.32, Endpoint: base + "BigBuckBunny.mp4"},
		{ID: "1", Label: "Demo Test Stream 2", Lat: 35.6595, Lon: 139.7004, Endpoint: base + "ElephantsDream.mp4"},
		{ID: "2", Label: "Demo Test Stream 3", Lat: 47.3769, Lon: 8.5417, Endpoint: base + "ForBiggerBlazes.mp4"},
		{ID: "3", Label: "Demo Test Stream 4", Lat: 40.7580, Lon: -73.9855, Endpoint: base + "ForBiggerEscapes.mp4"},
		{ID: "4", Label: "Demo Test Stream 5", Lat: 51.5319, Lon: -0.1773, Endpoint: base + "Sintel.mp4"},
		{ID: "5", Label: "Demo Test Stream 6", Lat: 48.8566, Lon: 2.3522, Endpoint: base + "TearsOfSteel.mp4"},
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Refresh.Interval <= 0 {
		errs = append(errs, errors.New("refresh.interval must be positive"))
	}
	if c.Refresh.SourceTimeout <= 0 {
		errs = append(errs, errors.New("refresh.source_timeout must be positive"))
	}
	if c.Refresh.HistorySize <= 0 {
		errs = append(errs, errors.New("refresh.history_size must be positive"))
	}
	if !c.Area.BBox.Valid() {
		errs = append(errs, fmt.Errorf("area.bbox %+v is not a valid box", c.Area.BBox))
	}
	if !geo.ValidCoordinate(c.Area.CenterLat, c.Area.CenterLon) {
		errs = append(errs, errors.New("area center is not a valid coordinate"))
	}
	if c.Celestrak.Enabled && c.Celestrak.RefreshInterval <= 0 {
		errs = append(errs, errors.New("celestrak.refresh_interval must be positive"))
	}
	switch c.Stream.Backend {
	case "mjpeg", "gocv":
	default:
		errs = append(errs, fmt.Errorf("stream.backend %q must be mjpeg or gocv", c.Stream.Backend))
	}
	if c.Stream.MaxRetries < 1 {
		errs = append(errs, errors.New("stream.max_retries must be at least 1"))
	}
	if c.Stream.FrameInterval <= 0 {
		errs = append(errs, errors.New("stream.frame_interval must be positive"))
	}
	if c.Stream.ReadTimeout <= 0 {
		errs = append(errs, errors.New("stream.read_timeout must be positive"))
	}
	if c.Stream.JPEGQuality < 1 || c.Stream.JPEGQuality > 100 {
		errs = append(errs, errors.New("stream.jpeg_quality must be in 1..100"))
	}
	if c.Stream.MaxConcurrentPerIP < 1 || c.Stream.MaxConcurrent < 1 {
		errs = append(errs, errors.New("stream concurrency limits must be positive"))
	}
	switch c.Tracing.Exporter {
	case "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q must be stdout or otlp", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be in [0,1]"))
	}

	seen := make(map[string]bool, len(c.Cameras.List))
	for i, cam := range c.Cameras.List {
		switch {
		case cam.ID == "":
			errs = append(errs, fmt.Errorf("camera %d has no id", i))
		case seen[cam.ID]:
			errs = append(errs, fmt.Errorf("camera id %q is repeated", cam.ID))
		case cam.Endpoint == "":
			errs = append(errs, fmt.Errorf("camera %q has no endpoint", cam.ID))
		}
		seen[cam.ID] = true
	}

	return errors.Join(errs...)
}
