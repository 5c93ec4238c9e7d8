package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// Source opens camera endpoints.
type Source interface {
	Open(ctx context.Context, endpoint string) (FrameReader, error)
}

// FrameReader yields decoded frames from an open endpoint. Read returns the
// newest frame the camera has produced since the previous Read, waiting for
// one until ctx is done. Frames in between may be dropped.
type FrameReader interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// NewSource returns the frame source for backend, which is "mjpeg" or
// "gocv". The gocv backend is only available in builds tagged gocv.
func NewSource(backend string, connectTimeout time.Duration, logger *slog.Logger) (Source, error) {
	switch backend {
	case "mjpeg", "":
		return NewMJPEGSource(connectTimeout, logger), nil
	case "gocv":
		return newGoCVSource(logger)
	default:
		return nil, fmt.Errorf("unknown camera backend %q", backend)
	}
}
