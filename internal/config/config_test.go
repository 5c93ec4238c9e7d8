package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkgkaundal/sas/internal/geo"
	"github.com/kkgkaundal/sas/internal/logging"
)

// TestLoadDefaults checks the built-in values with no file and no env.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("SAS_CONFIG", "")
	cfg, err := Load("", logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, geo.BBox{MinLat: 27, MinLon: 76, MaxLat: 29, MaxLon: 78}, cfg.Area.BBox)
	assert.Equal(t, []int{25544, 48274}, cfg.Celestrak.CatalogNumbers)
	assert.Len(t, cfg.Cameras.List, 6)
	assert.Equal(t, 3, cfg.Stream.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Stream.FrameInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Stream.DegradedDelay)
	assert.Equal(t, 3*time.Second, cfg.Stream.OfflineDelay)
	assert.Equal(t, 75, cfg.Stream.JPEGQuality)
	assert.Equal(t, 5*time.Second, cfg.Stream.ReadTimeout)
	assert.False(t, cfg.Tracing.Enabled)
}

// TestLoadYAMLThenEnv verifies file values override defaults and env
// overrides the file.
func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sas.yaml")
	yml := `
refresh:
  interval: 45s
  history_size: 5
area:
  bbox: {min_lat: 10, min_lon: 20, max_lat: 11, max_lon: 21}
  center_lat: 10.5
  center_lon: 20.5
stream:
  backend: mjpeg
  max_retries: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("SAS_REFRESH_INTERVAL", "15s")

	cfg, err := Load(path, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, 5, cfg.Refresh.HistorySize)
	assert.Equal(t, 10.0, cfg.Area.BBox.MinLat)
	assert.Equal(t, 5, cfg.Stream.MaxRetries)
	// Untouched sections keep their defaults.
	assert.Equal(t, 75, cfg.Stream.JPEGQuality)
}

// TestInvalidEnvKeepsDefault verifies bad override values are ignored.
func TestInvalidEnvKeepsDefault(t *testing.T) {
	t.Setenv("SAS_CONFIG", "")
	t.Setenv("SAS_REFRESH_INTERVAL", "soon")
	t.Setenv("SAS_HISTORY_SIZE", "-3")
	t.Setenv("SAS_BBOX", "29,76,27,78")
	t.Setenv("SAS_CATALOG_NUMBERS", "25544,abc")

	cfg, err := Load("", logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, 10, cfg.Refresh.HistorySize)
	assert.Equal(t, 27.0, cfg.Area.BBox.MinLat)
	assert.Equal(t, []int{25544, 48274}, cfg.Celestrak.CatalogNumbers)
}

// TestEnvOverrides covers the parsed override forms.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("SAS_CONFIG", "")
	t.Setenv("SAS_BBOX", "1,2,3,4")
	t.Setenv("SAS_CATALOG_NUMBERS", " 1, 2 ,3")
	t.Setenv("SAS_WEATHER_ENABLED", "false")
	t.Setenv("SAS_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("SAS_STREAM_READ_TIMEOUT", "750ms")

	cfg, err := Load("", logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, geo.BBox{MinLat: 1, MinLon: 2, MaxLat: 3, MaxLon: 4}, cfg.Area.BBox)
	assert.Equal(t, []int{1, 2, 3}, cfg.Celestrak.CatalogNumbers)
	assert.False(t, cfg.Weather.Enabled)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
	assert.Equal(t, 750*time.Millisecond, cfg.Stream.ReadTimeout)
}

// TestLoadMissingFile ensures an explicit path must exist.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// TestValidate checks each rejected configuration.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.Refresh.Interval = 0 }, "refresh.interval"},
		{"inverted bbox", func(c *Config) { c.Area.BBox.MinLat, c.Area.BBox.MaxLat = 29, 27 }, "area.bbox"},
		{"bad backend", func(c *Config) { c.Stream.Backend = "vlc" }, "stream.backend"},
		{"no read timeout", func(c *Config) { c.Stream.ReadTimeout = 0 }, "read_timeout"},
		{"jpeg quality", func(c *Config) { c.Stream.JPEGQuality = 0 }, "jpeg_quality"},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, "tracing.exporter"},
		{"duplicate camera", func(c *Config) { c.Cameras.List[1].ID = "0" }, "repeated"},
		{"camera without endpoint", func(c *Config) { c.Cameras.List[2].Endpoint = "" }, "no endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

// TestLoadCameras parses a BOM-prefixed catalog.
func TestLoadCameras(t *testing.T) {
	csv := "\xef\xbb\xbfid,label,lat,lon,endpoint\n" +
		"a, Gate ,28.1,77.3,http://cam/a.mjpg\n" +
		"b,Yard,28.2,77.4, http://cam/b.jpg \n"

	cams, err := LoadCameras(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, cams, 2)
	assert.Equal(t, "a", cams[0].ID)
	assert.Equal(t, 28.1, cams[0].Lat)
	assert.Equal(t, "http://cam/b.jpg", cams[1].Endpoint)
}

// TestLoadCamerasFromConfig verifies csv_file replaces the inline list.
func TestLoadCamerasFromConfig(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "cams.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,label,lat,lon,endpoint\nx,X,1,2,http://x\n"), 0o644))
	t.Setenv("SAS_CONFIG", "")
	t.Setenv("SAS_CAMERAS_CSV", csvPath)

	cfg, err := Load("", logging.Discard())
	require.NoError(t, err)
	require.Len(t, cfg.Cameras.List, 1)
	assert.Equal(t, "x", cfg.Cameras.List[0].ID)
}
