package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kkgkaundal/sas/internal/geo"
)

func applyEnvOverrides(cfg *Config, logger *slog.Logger) {
	envString("SAS_HTTP_ADDR", &cfg.Server.Addr)
	envBool(logger, "SAS_TRUST_PROXY", &cfg.Server.TrustProxy)
	envDuration(logger, "SAS_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	envString("SAS_LOG_LEVEL", &cfg.Logging.Level)
	envString("SAS_LOG_FORMAT", &cfg.Logging.Format)

	envDuration(logger, "SAS_REFRESH_INTERVAL", &cfg.Refresh.Interval)
	envDuration(logger, "SAS_SOURCE_TIMEOUT", &cfg.Refresh.SourceTimeout)
	envInt(logger, "SAS_HISTORY_SIZE", &cfg.Refresh.HistorySize)

	if v := os.Getenv("SAS_BBOX"); v != "" {
		if box, ok := parseBBox(v); ok {
			cfg.Area.BBox = box
		} else {
			logger.Warn("invalid SAS_BBOX value, using default", "value", v)
		}
	}

	envBool(logger, "SAS_OPENSKY_ENABLED", &cfg.OpenSky.Enabled)
	envString("SAS_OPENSKY_URL", &cfg.OpenSky.BaseURL)

	envBool(logger, "SAS_CELESTRAK_ENABLED", &cfg.Celestrak.Enabled)
	envString("SAS_CELESTRAK_URL", &cfg.Celestrak.BaseURL)
	if v := os.Getenv("SAS_CATALOG_NUMBERS"); v != "" {
		if nums, ok := parseCatalogNumbers(v); ok {
			cfg.Celestrak.CatalogNumbers = nums
		} else {
			logger.Warn("invalid SAS_CATALOG_NUMBERS value, using default", "value", v)
		}
	}
	envDuration(logger, "SAS_TLE_REFRESH_INTERVAL", &cfg.Celestrak.RefreshInterval)
	envDuration(logger, "SAS_TLE_MAX_AGE", &cfg.Celestrak.MaxAge)
	envString("SAS_TLE_CACHE_PATH", &cfg.Celestrak.CachePath)
	envInt(logger, "SAS_PROP_WORKERS", &cfg.Celestrak.Workers)

	envBool(logger, "SAS_WEATHER_ENABLED", &cfg.Weather.Enabled)
	envString("SAS_WEATHER_URL", &cfg.Weather.BaseURL)
	envString("SAS_WEATHER_TIMEZONE", &cfg.Weather.Timezone)

	envBool(logger, "SAS_GEOCODE_ENABLED", &cfg.Geocode.Enabled)
	envString("SAS_GEOCODE_URL", &cfg.Geocode.BaseURL)
	envDuration(logger, "SAS_GEOCODE_TTL", &cfg.Geocode.TTL)

	envBool(logger, "SAS_TRAFFIC_ENABLED", &cfg.Traffic.Enabled)

	envString("SAS_CAMERAS_CSV", &cfg.Cameras.CSVFile)

	envString("SAS_STREAM_BACKEND", &cfg.Stream.Backend)
	envInt(logger, "SAS_STREAM_MAX_RETRIES", &cfg.Stream.MaxRetries)
	envDuration(logger, "SAS_STREAM_IDLE_TIMEOUT", &cfg.Stream.IdleTimeout)
	envDuration(logger, "SAS_STREAM_READ_TIMEOUT", &cfg.Stream.ReadTimeout)
	envBool(logger, "SAS_STREAM_OVERLAY", &cfg.Stream.Overlay)
	envInt(logger, "SAS_STREAM_MAX_PER_IP", &cfg.Stream.MaxConcurrentPerIP)
	envInt(logger, "SAS_STREAM_MAX_CONCURRENT", &cfg.Stream.MaxConcurrent)

	envBool(logger, "SAS_TRACING_ENABLED", &cfg.Tracing.Enabled)
	envString("SAS_TRACING_EXPORTER", &cfg.Tracing.Exporter)
	envString("SAS_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	if v := os.Getenv("SAS_TRACING_SAMPLE_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.Tracing.SampleRatio = f
		} else {
			logger.Warn("invalid SAS_TRACING_SAMPLE_RATIO value, using default", "value", v)
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(logger *slog.Logger, key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid "+key+" value, using default", "value", v)
		return
	}
	*dst = b
}

func envInt(logger *slog.Logger, key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("invalid "+key+" value, using default", "value", v)
		return
	}
	*dst = n
}

func envDuration(logger *slog.Logger, key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logger.Warn("invalid "+key+" value, using default", "value", v)
		return
	}
	*dst = d
}

// parseBBox reads "minLat,minLon,maxLat,maxLon".
func parseBBox(s string) (geo.BBox, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BBox{}, false
	}
	var vals [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BBox{}, false
		}
		vals[i] = f
	}
	box := geo.BBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	return box, box.Valid()
}

func parseCatalogNumbers(s string) ([]int, bool) {
	var nums []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, len(nums) > 0
}
