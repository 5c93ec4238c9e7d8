package camera

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kkgkaundal/sas/internal/config"
)

// Manager creates sessions on the first subscriber and stops them after
// IdleTimeout with no subscribers.
type Manager struct {
	cfg       Config
	src       Source
	renderer  *Renderer
	annotator Annotator
	logger    *slog.Logger

	cams  map[string]config.Camera
	order []config.Camera

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*managed
	wg       sync.WaitGroup

	// observe is copied into new sessions; tests only.
	observe func(State, int)
}

type managed struct {
	sess   *Session
	cancel context.CancelFunc
	subs   int
	idle   *time.Timer
}

// NewManager returns a Manager for cams. annotator may be nil.
func NewManager(cfg Config, cams []config.Camera, src Source, annotator Annotator, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		src:       src,
		renderer:  NewRenderer(cfg.JPEGQuality, cfg.Overlay),
		annotator: annotator,
		logger:    logger.With("component", "camera"),
		cams:      make(map[string]config.Camera, len(cams)),
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*managed),
	}
	for _, c := range cams {
		if _, dup := m.cams[c.ID]; dup {
			continue
		}
		m.cams[c.ID] = c
		m.order = append(m.order, c)
	}
	return m
}

// Cameras returns the catalog in configuration order.
func (m *Manager) Cameras() []config.Camera {
	out := make([]config.Camera, len(m.order))
	copy(out, m.order)
	return out
}

// Camera looks up one catalog entry.
func (m *Manager) Camera(id string) (config.Camera, bool) {
	c, ok := m.cams[id]
	return c, ok
}

// Subscription delivers frames from one session. C always holds at most
// the newest undelivered frame.
type Subscription struct {
	C <-chan Frame

	release func()
	once    sync.Once
}

// NewSubscription wraps c; release runs once on the first Close.
func NewSubscription(c <-chan Frame, release func()) *Subscription {
	return &Subscription{C: c, release: release}
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Subscribe attaches to the camera's session, starting it if needed.
func (m *Manager) Subscribe(id string) (*Subscription, error) {
	cam, ok := m.cams[id]
	if !ok {
		return nil, ErrUnknownCamera
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ctx.Err(); err != nil {
		return nil, err
	}

	e, ok := m.sessions[id]
	if !ok {
		sess := newSession(cam, m.cfg, m.src, m.renderer, m.annotator, m.logger)
		sess.observe = m.observe
		ctx, cancel := context.WithCancel(m.ctx)
		e = &managed{sess: sess, cancel: cancel}
		m.sessions[id] = e
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			sess.run(ctx)
			sess.logger.Info("camera session stopped")
		}()
	}
	if e.idle != nil {
		e.idle.Stop()
		e.idle = nil
	}
	e.subs++

	ch := e.sess.bc.subscribe()
	return NewSubscription(ch, func() { m.release(id, ch) }), nil
}

func (m *Manager) release(id string, ch chan Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return
	}
	e.sess.bc.unsubscribe(ch)
	e.subs--
	if e.subs > 0 {
		return
	}
	e.idle = time.AfterFunc(m.cfg.IdleTimeout, func() { m.reap(id, e) })
}

// reap stops e if it is still current and still unwatched.
func (m *Manager) reap(id string, e *managed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[id] != e || e.subs > 0 {
		return
	}
	e.cancel()
	delete(m.sessions, id)
	m.logger.Info("camera session idle, stopping", "camera_id", id)
}

// Status reports the session for id, or Idle when none is running.
func (m *Manager) Status(id string) (Status, bool) {
	if _, ok := m.cams[id]; !ok {
		return Status{}, false
	}
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return Status{State: Idle, Labels: map[string]int{}}, true
	}
	return e.sess.Status(), true
}

// Close stops every session and waits for them to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	for id, e := range m.sessions {
		if e.idle != nil {
			e.idle.Stop()
		}
		e.cancel()
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}
