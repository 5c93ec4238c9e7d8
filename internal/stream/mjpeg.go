// Package stream serves camera sessions to HTTP clients as MJPEG:
//
//	Content-Type: multipart/x-mixed-replace; boundary=frame
//
//	--frame
//	Content-Type: image/jpeg
//	Content-Length: 18341
//
//	<jpeg bytes>
//
// Each client pulls the newest frame from its subscription at most once per
// frame interval. The response ends when the client disconnects.
package stream

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kkgkaundal/sas/internal/camera"
	"github.com/kkgkaundal/sas/internal/httputil"
	"github.com/kkgkaundal/sas/internal/metrics"
)

// Boundary separates JPEG parts.
const Boundary = "frame"

// Config holds delivery settings.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrent      int           // Global cap (default: 1000).
	FrameInterval      time.Duration // Minimum spacing between frames (default: 100ms).
	TrustProxy         bool
}

// Sessions hands out frame subscriptions by camera id.
type Sessions interface {
	Subscribe(id string) (*camera.Subscription, error)
}

// Handler manages MJPEG connections.
type Handler struct {
	sessions Sessions
	config   Config
	limiter  *viewerLimiter
	logger   *slog.Logger
}

// NewHandler creates a streaming handler.
func NewHandler(sessions Sessions, config Config, logger *slog.Logger) *Handler {
	if config.FrameInterval <= 0 {
		config.FrameInterval = 100 * time.Millisecond
	}
	return &Handler{
		sessions: sessions,
		config:   config,
		limiter:  newViewerLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		logger:   logger.With("component", "stream"),
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandleVideo serves GET /video_feed/{id}.
func (h *Handler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	leave, held, ok := h.limiter.admit(ip)
	if !ok {
		metrics.StreamRejected()
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", held,
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}
	defer leave()

	sub, err := h.sessions.Subscribe(id)
	if err != nil {
		if errors.Is(err, camera.ErrUnknownCamera) {
			writeError(w, http.StatusNotFound, "camera not found")
			return
		}
		metrics.StreamError("subscribe")
		h.logger.Error("stream subscribe failed", "camera_id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "camera unavailable")
		return
	}
	defer sub.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.StreamOpened()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"camera_id", id,
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)

	rc := http.NewResponseController(w)
	c, err := newClient(w, flusher, rc, ip, h.logger)
	if err != nil {
		metrics.StreamClosed()
		writeError(w, http.StatusInternalServerError, "stream setup failed")
		return
	}
	defer func() {
		metrics.StreamClosed()
		h.logger.Info("stream disconnected",
			"camera_id", id,
			"remote_ip", ip,
			"frames", c.framesSent,
			"bytes", c.bytesSent,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+Boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived response: drop the server's WriteTimeout for this
	// connection; sendFrame sets a per-write deadline instead.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	ctx := r.Context()
	gap := time.NewTimer(0)
	defer gap.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gap.C:
		}

		select {
		case <-ctx.Done():
			return
		case f := <-sub.C:
			if err := c.sendFrame(f); err != nil {
				metrics.StreamError("send_error")
				h.logger.Debug("stream send error", "camera_id", id, "remote_ip", ip, "error", err)
				return
			}
			gap.Reset(h.config.FrameInterval)
		}
	}
}
