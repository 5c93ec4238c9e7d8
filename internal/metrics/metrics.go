package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sas_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	refreshCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_refresh_cycles_total",
			Help: "Refresh cycles by outcome (published, abandoned).",
		},
		[]string{"outcome"},
	)

	refreshCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sas_refresh_cycle_duration_seconds",
			Help:    "Wall time of one refresh cycle.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	sourceFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_source_fetch_total",
			Help: "Source fetches by source and result (ok, error).",
		},
		[]string{"source", "result"},
	)

	sourceRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sas_source_records",
			Help: "Records returned by each source in the last cycle.",
		},
		[]string{"source"},
	)

	tracksGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sas_tracks",
			Help: "Tracks in the published snapshot by class.",
		},
		[]string{"class"},
	)

	alertsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sas_alerts",
			Help: "Alerts in the published snapshot by category.",
		},
		[]string{"category"},
	)

	propagationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sas_propagation_duration_seconds",
			Help:    "Time to propagate all satellites for one cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	propagationResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_propagation_results_total",
			Help: "Per-satellite propagation results (ok, invalid_tle, error).",
		},
		[]string{"result"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_stream_connections_total",
			Help: "Video stream connection events (opened, closed, rejected).",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sas_streams_active",
			Help: "Currently connected video stream clients.",
		},
	)

	streamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_stream_frames_total",
			Help: "Frames delivered to clients by kind (live, fallback, placeholder).",
		},
		[]string{"kind"},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sas_stream_bytes_total",
			Help: "JPEG bytes written to video stream clients.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_stream_errors_total",
			Help: "Video stream errors by reason.",
		},
		[]string{"reason"},
	)

	cameraSessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sas_camera_session_state",
			Help: "1 for the current state of each camera session, 0 otherwise.",
		},
		[]string{"camera", "state"},
	)

	cameraReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_camera_reconnects_total",
			Help: "Camera session reconnect attempts.",
		},
		[]string{"camera"},
	)

	tleFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sas_tle_fetch_total",
			Help: "Per-satellite TLE fetches by result (ok, cached, error).",
		},
		[]string{"result"},
	)

	tleDatasetAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sas_tle_dataset_age_seconds",
			Help: "Seconds since the TLE dataset was last refreshed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		refreshCyclesTotal,
		refreshCycleDuration,
		sourceFetchTotal,
		sourceRecords,
		tracksGauge,
		alertsGauge,
		propagationDuration,
		propagationResults,
		streamConnectionsTotal,
		streamsActive,
		streamFramesTotal,
		streamBytesTotal,
		streamErrorsTotal,
		cameraSessionState,
		cameraReconnectsTotal,
		tleFetchTotal,
		tleDatasetAge,
		versioncollector.NewCollector("sas"),
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCycle counts a finished refresh cycle and its duration.
func RecordCycle(outcome string, d time.Duration) {
	refreshCyclesTotal.WithLabelValues(outcome).Inc()
	refreshCycleDuration.Observe(d.Seconds())
}

// RecordSourceFetch counts one fetch of source with result "ok" or "error".
func RecordSourceFetch(source, result string) {
	sourceFetchTotal.WithLabelValues(source, result).Inc()
}

// SetSourceRecords sets how many records source returned in the last cycle.
func SetSourceRecords(source string, n int) {
	sourceRecords.WithLabelValues(source).Set(float64(n))
}

// SetTracks sets the published track count for class.
func SetTracks(class string, n int) {
	tracksGauge.WithLabelValues(class).Set(float64(n))
}

// SetAlerts sets the published alert count for category.
func SetAlerts(category string, n int) {
	alertsGauge.WithLabelValues(category).Set(float64(n))
}

// ObservePropagation records the duration of one propagation batch.
func ObservePropagation(d time.Duration) {
	propagationDuration.Observe(d.Seconds())
}

// RecordPropagationResult counts one satellite propagation outcome.
func RecordPropagationResult(result string) {
	propagationResults.WithLabelValues(result).Inc()
}

// StreamOpened records a new video client.
func StreamOpened() {
	streamConnectionsTotal.WithLabelValues("opened").Inc()
	streamsActive.Inc()
}

// StreamClosed records a video client going away.
func StreamClosed() {
	streamConnectionsTotal.WithLabelValues("closed").Inc()
	streamsActive.Dec()
}

// StreamRejected records a video client refused by the limiter.
func StreamRejected() {
	streamConnectionsTotal.WithLabelValues("rejected").Inc()
}

// StreamFrame records one frame of kind written to a client.
func StreamFrame(kind string, bytes int) {
	streamFramesTotal.WithLabelValues(kind).Inc()
	streamBytesTotal.Add(float64(bytes))
}

// StreamError counts a stream error by reason.
func StreamError(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// SetCameraState marks current as the active state of camera among all.
func SetCameraState(camera, current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		cameraSessionState.WithLabelValues(camera, s).Set(v)
	}
}

// CameraReconnect counts a reconnect attempt for camera.
func CameraReconnect(camera string) {
	cameraReconnectsTotal.WithLabelValues(camera).Inc()
}

// RecordTLEFetch counts one per-satellite TLE fetch result.
func RecordTLEFetch(result string) {
	tleFetchTotal.WithLabelValues(result).Inc()
}

// SetTLEDatasetAge sets the TLE dataset age gauge.
func SetTLEDatasetAge(seconds float64) {
	tleDatasetAge.Set(seconds)
}

// normalizeRoute maps a request path to a bounded label set. Paths with an
// id segment collapse to their pattern; anything unknown becomes "other".
func normalizeRoute(path string) string {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/api/data", "/api/cameras/list":
		return path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "api" && parts[1] == "camera" && parts[2] != "":
		return "/api/camera/{id}"
	case len(parts) == 2 && parts[0] == "video_feed" && parts[1] != "":
		return "/video_feed/{id}"
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "object" && parts[2] != "" && parts[3] != "":
		return "/api/object/{class}/{id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush passes through so streaming handlers behind the middleware work.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
