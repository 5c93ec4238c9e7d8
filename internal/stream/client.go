package stream

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/kkgkaundal/sas/internal/camera"
	"github.com/kkgkaundal/sas/internal/metrics"
)

// writeTimeout bounds a single frame write.
const writeTimeout = 30 * time.Second

// client writes JPEG parts to one multipart/x-mixed-replace response.
type client struct {
	mw      *multipart.Writer
	flusher http.Flusher
	rc      *http.ResponseController
	ip      string
	logger  *slog.Logger

	framesSent int64
	bytesSent  int64
}

func newClient(w http.ResponseWriter, flusher http.Flusher, rc *http.ResponseController, ip string, logger *slog.Logger) (*client, error) {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(Boundary); err != nil {
		return nil, err
	}
	return &client{mw: mw, flusher: flusher, rc: rc, ip: ip, logger: logger}, nil
}

// sendFrame writes f as one image/jpeg part and flushes it.
func (c *client) sendFrame(f camera.Frame) error {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}

	part, err := c.mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":   {"image/jpeg"},
		"Content-Length": {strconv.Itoa(len(f.JPEG))},
	})
	if err != nil {
		return fmt.Errorf("part header: %w", err)
	}
	n, err := part.Write(f.JPEG)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.flusher.Flush()
	c.framesSent++
	c.bytesSent += int64(n)
	metrics.StreamFrame(string(f.Kind), n)
	return nil
}
