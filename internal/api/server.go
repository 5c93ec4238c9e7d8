// Package api wires the HTTP routes, middleware and server timeouts.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kkgkaundal/sas/internal/camera"
	"github.com/kkgkaundal/sas/internal/config"
	"github.com/kkgkaundal/sas/internal/health"
	"github.com/kkgkaundal/sas/internal/httputil"
	"github.com/kkgkaundal/sas/internal/metrics"
	"github.com/kkgkaundal/sas/internal/snapshot"
	"github.com/kkgkaundal/sas/internal/sources/geocode"
)

// Cameras is the camera catalog with live session status.
type Cameras interface {
	Cameras() []config.Camera
	Camera(id string) (config.Camera, bool)
	Status(id string) (camera.Status, bool)
}

// Geocoder resolves coordinates for object detail. Optional.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Location, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Store    *snapshot.Store
	Cameras  Cameras
	Video    http.HandlerFunc
	Geocoder Geocoder
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, trustProxy bool, deps Deps, logger *slog.Logger) *Server {
	logger = logger.With("component", "api")
	h := &handlers{deps: deps, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Store.Ready))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/data", h.data)
	mux.HandleFunc("GET /api/cameras/list", h.cameraList)
	mux.HandleFunc("GET /api/camera/{id}", h.camera)
	mux.HandleFunc("GET /api/object/{class}/{id}", h.object)
	if deps.Video != nil {
		mux.HandleFunc("GET /video_feed/{id}", deps.Video)
	}

	// Build middleware chain: metrics -> logging -> mux.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger, trustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// quietPath returns true for health and readiness paths that should not log at INFO.
func quietPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if quietPath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
