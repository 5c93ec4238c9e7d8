// Package camera runs one resilient video session per fixed camera and fans
// the latest JPEG frame out to any number of subscribers.
//
// A session moves through four states:
//
//	CONNECTING -> STREAMING on open, -> DEGRADED (retry 1) on failure
//	STREAMING  -> DEGRADED on a failed read
//	DEGRADED   -> STREAMING on a good read, -> OFFLINE after MaxRetries failures
//	OFFLINE    -> CONNECTING after OfflineDelay
//
// While DEGRADED the last good frame is re-sent; while OFFLINE a rendered
// placeholder is sent instead.
package camera

import (
	"context"
	"errors"
	"image"
	"time"
)

// State is a session lifecycle state.
type State string

const (
	Idle       State = "IDLE"
	Connecting State = "CONNECTING"
	Streaming  State = "STREAMING"
	Degraded   State = "DEGRADED"
	Offline    State = "OFFLINE"
)

// sessionStates are the states a running session reports to metrics.
var sessionStates = []string{string(Connecting), string(Streaming), string(Degraded), string(Offline)}

// FrameKind says where a frame came from.
type FrameKind string

const (
	KindLive        FrameKind = "live"
	KindFallback    FrameKind = "fallback"
	KindPlaceholder FrameKind = "placeholder"
)

// Frame is one encoded JPEG ready for delivery. Frames are shared between
// subscribers and must not be modified.
type Frame struct {
	JPEG []byte
	Seq  uint64
	Kind FrameKind
	At   time.Time
}

// Status is a point-in-time view of a camera session.
type Status struct {
	State       State          `json:"state"`
	RetryCount  int            `json:"retry_count"`
	FramesRead  uint64         `json:"frames_read"`
	Reconnects  int            `json:"reconnects"`
	Subscribers int            `json:"subscribers"`
	LastFrameAt *time.Time     `json:"last_frame_at"`
	Labels      map[string]int `json:"labels"`
}

// Config holds session timing and rendering settings.
type Config struct {
	MaxRetries     int
	FrameInterval  time.Duration
	DegradedDelay  time.Duration
	OfflineDelay   time.Duration
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for one frame. Zero waits forever.
	ReadTimeout time.Duration
	JPEGQuality int
	Overlay     bool
}

// DefaultConfig returns the stock session settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		FrameInterval:  100 * time.Millisecond,
		DegradedDelay:  500 * time.Millisecond,
		OfflineDelay:   3 * time.Second,
		IdleTimeout:    60 * time.Second,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    5 * time.Second,
		JPEGQuality:    75,
		Overlay:        true,
	}
}

// ErrUnknownCamera is returned for an id not in the catalog.
var ErrUnknownCamera = errors.New("unknown camera")

// Annotator labels objects in a frame. Implementations wrap an external
// classifier; a failure is treated as no labels.
type Annotator interface {
	Annotate(ctx context.Context, img image.Image) (map[string]int, error)
}
