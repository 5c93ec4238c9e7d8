package camera

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/kkgkaundal/sas/internal/config"
	"github.com/kkgkaundal/sas/internal/metrics"
)

// annotateTimeout bounds one Annotator call.
const annotateTimeout = 2 * time.Second

// Session owns the connection to one camera. All state transitions happen
// on the run goroutine; Status reads a copy under mu.
type Session struct {
	cam       config.Camera
	cfg       Config
	src       Source
	renderer  *Renderer
	annotator Annotator
	bc        *broadcaster
	logger    *slog.Logger

	mu     sync.Mutex
	status Status

	// Owned by run.
	reader   FrameReader
	lastGood []byte
	seq      uint64

	// observe, when set, sees every state transition.
	observe func(State, int)
}

func newSession(cam config.Camera, cfg Config, src Source, renderer *Renderer, annotator Annotator, logger *slog.Logger) *Session {
	return &Session{
		cam:       cam,
		cfg:       cfg,
		src:       src,
		renderer:  renderer,
		annotator: annotator,
		bc:        newBroadcaster(),
		logger:    logger.With("camera_id", cam.ID),
		status:    Status{State: Connecting, Labels: map[string]int{}},
	}
}

// Status returns a copy of the session status.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := s.status
	st.Labels = make(map[string]int, len(s.status.Labels))
	for k, v := range s.status.Labels {
		st.Labels[k] = v
	}
	s.mu.Unlock()
	st.Subscribers = s.bc.count()
	return st
}

func (s *Session) setState(state State, retry int) {
	s.mu.Lock()
	s.status.State = state
	s.status.RetryCount = retry
	s.mu.Unlock()
	metrics.SetCameraState(s.cam.ID, string(state), sessionStates)
	if s.observe != nil {
		s.observe(state, retry)
	}
}

// run drives the state machine until ctx is cancelled.
func (s *Session) run(ctx context.Context) {
	defer s.closeReader()
	s.logger.Info("camera session started", "endpoint", s.cam.Endpoint)

	state, retry := Connecting, 0
	s.setState(state, retry)

	for ctx.Err() == nil {
		switch state {
		case Connecting:
			if err := s.open(ctx); err != nil {
				s.logger.Warn("camera connect failed", "error", err)
				state, retry = Degraded, 1
			} else {
				state, retry = Streaming, 0
			}
			s.setState(state, retry)

		case Streaming:
			if err := s.readAndPublish(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("camera read failed", "error", err)
				state, retry = Degraded, 1
				s.setState(state, retry)
				continue
			}
			sleep(ctx, s.cfg.FrameInterval)

		case Degraded:
			if retry >= s.cfg.MaxRetries {
				state = Offline
				s.setState(state, retry)
				continue
			}
			if s.lastGood != nil {
				s.emit(s.lastGood, KindFallback)
			}
			if !sleep(ctx, s.cfg.DegradedDelay) {
				return
			}
			err := s.open(ctx)
			if err == nil {
				err = s.readAndPublish(ctx)
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				retry++
				s.logger.Debug("camera retry failed", "retry", retry, "error", err)
				s.setState(state, retry)
				continue
			}
			state, retry = Streaming, 0
			s.setState(state, retry)
			sleep(ctx, s.cfg.FrameInterval)

		case Offline:
			s.closeReader()
			if ph, err := s.renderer.Placeholder(s.cam.Label); err == nil {
				s.emit(ph, KindPlaceholder)
			} else {
				s.logger.Error("render placeholder failed", "error", err)
			}
			if !sleep(ctx, s.cfg.OfflineDelay) {
				return
			}
			s.mu.Lock()
			s.status.Reconnects++
			s.mu.Unlock()
			metrics.CameraReconnect(s.cam.ID)
			s.logger.Info("camera reconnecting")
			state, retry = Connecting, 0
			s.setState(state, retry)
		}
	}
}

// open ensures a reader is available.
func (s *Session) open(ctx context.Context) error {
	if s.reader != nil {
		return nil
	}
	r, err := s.src.Open(ctx, s.cam.Endpoint)
	if err != nil {
		return err
	}
	s.reader = r
	return nil
}

func (s *Session) closeReader() {
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}
}

// readAndPublish reads one frame, renders it and sends it to subscribers.
// A failed or stalled read drops the reader so the next attempt reconnects.
func (s *Session) readAndPublish(ctx context.Context) error {
	img, err := s.read(ctx)
	if err != nil {
		s.closeReader()
		return err
	}

	now := time.Now()
	s.mu.Lock()
	s.status.FramesRead++
	n := s.status.FramesRead
	s.status.LastFrameAt = &now
	s.mu.Unlock()

	s.annotate(ctx, img)

	data, err := s.renderer.Frame(img, s.cam.Label, n, now)
	if err != nil {
		return err
	}
	s.lastGood = data
	s.emit(data, KindLive)
	return nil
}

// read waits at most ReadTimeout for the next frame.
func (s *Session) read(ctx context.Context) (image.Image, error) {
	if s.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
	}
	return s.reader.Read(ctx)
}

func (s *Session) annotate(ctx context.Context, img image.Image) {
	if s.annotator == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, annotateTimeout)
	defer cancel()
	labels, err := s.annotator.Annotate(ctx, img)
	if err != nil {
		s.logger.Debug("annotation failed", "error", err)
		labels = nil
	}
	cp := make(map[string]int, len(labels))
	for k, v := range labels {
		cp[k] = v
	}
	s.mu.Lock()
	s.status.Labels = cp
	s.mu.Unlock()
}

func (s *Session) emit(data []byte, kind FrameKind) {
	s.seq++
	s.bc.publish(Frame{JPEG: data, Seq: s.seq, Kind: kind, At: time.Now()})
}

// sleep waits for d or ctx, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
