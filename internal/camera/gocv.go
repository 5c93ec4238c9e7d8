//go:build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// GoCVSource opens any endpoint OpenCV's FFmpeg backend understands:
// files, MP4 over HTTP, RTSP and HLS.
type GoCVSource struct {
	logger *slog.Logger
}

func newGoCVSource(logger *slog.Logger) (Source, error) {
	return &GoCVSource{logger: logger.With("component", "gocv")}, nil
}

// Open starts a capture on endpoint and checks that it opened.
func (s *GoCVSource) Open(ctx context.Context, endpoint string) (FrameReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	capture, err := gocv.VideoCaptureFile(endpoint)
	if err != nil {
		return nil, fmt.Errorf("gocv: open: %w", err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.New("gocv: capture did not open")
	}
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	r := &gocvReader{
		capture: capture,
		grab:    gocv.NewMat(),
		latest:  gocv.NewMat(),
		changed: make(chan struct{}),
		stop:    make(chan struct{}),
	}
	go r.pump()
	return r, nil
}

// gocvReader grabs frames continuously on its own goroutine, which owns the
// capture. Read converts only the newest grabbed frame.
type gocvReader struct {
	capture *gocv.VideoCapture
	grab    gocv.Mat

	mu      sync.Mutex
	latest  gocv.Mat
	gen     uint64
	taken   uint64
	err     error
	changed chan struct{}

	stop      chan struct{}
	closeOnce sync.Once
}

func (r *gocvReader) pump() {
	// The capture and mats are released here, after the blocking Read in
	// progress returns, because OpenCV objects are not safe to close from
	// another goroutine.
	defer func() {
		r.capture.Close()
		r.grab.Close()
		r.mu.Lock()
		r.taken = r.gen
		r.latest.Close()
		r.mu.Unlock()
	}()
	for {
		select {
		case <-r.stop:
			r.finish(errors.New("gocv: reader closed"))
			return
		default:
		}
		if ok := r.capture.Read(&r.grab); !ok || r.grab.Empty() {
			r.finish(errors.New("gocv: read failed"))
			return
		}
		r.mu.Lock()
		r.grab.CopyTo(&r.latest)
		r.gen++
		close(r.changed)
		r.changed = make(chan struct{})
		r.mu.Unlock()
	}
}

func (r *gocvReader) finish(err error) {
	r.mu.Lock()
	r.err = err
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
}

func (r *gocvReader) Read(ctx context.Context) (image.Image, error) {
	for {
		r.mu.Lock()
		if r.gen > r.taken {
			r.taken = r.gen
			img, err := r.latest.ToImage()
			r.mu.Unlock()
			if err != nil {
				return nil, fmt.Errorf("gocv: convert frame: %w", err)
			}
			return img, nil
		}
		err, wait := r.err, r.changed
		r.mu.Unlock()
		if err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gocv: waiting for frame: %w", ctx.Err())
		case <-wait:
		}
	}
}

// Close asks the pump to stop. A capture blocked inside OpenCV is released
// once its read returns.
func (r *gocvReader) Close() error {
	r.closeOnce.Do(func() { close(r.stop) })
	return nil
}
