package camera

import (
	"errors"
	"testing"
	"time"

	"github.com/kkgkaundal/sas/internal/config"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	cams := []config.Camera{
		testCam,
		{ID: "1", Label: "Yard", Endpoint: "http://cam/1"},
	}
	m := NewManager(cfg, cams, newFakeSource(), nil, testLogger())
	t.Cleanup(m.Close)
	return m
}

func waitState(t *testing.T, m *Manager, id string, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := m.Status(id); st.State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	st, _ := m.Status(id)
	t.Fatalf("camera %s state = %s, want %s", id, st.State, want)
}

// TestManagerLazySession verifies no session runs before the first
// subscriber and that frames flow once one subscribes.
func TestManagerLazySession(t *testing.T) {
	m := newTestManager(t, fastConfig())

	if st, ok := m.Status("0"); !ok || st.State != Idle {
		t.Fatalf("status before subscribe = %+v, %v; want IDLE", st, ok)
	}

	sub, err := m.Subscribe("0")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	select {
	case f := <-sub.C:
		if len(f.JPEG) == 0 {
			t.Error("empty frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	st, _ := m.Status("0")
	if st.State != Streaming || st.Subscribers != 1 {
		t.Errorf("status = %+v, want STREAMING with 1 subscriber", st)
	}
	if st, _ := m.Status("1"); st.State != Idle {
		t.Errorf("camera 1 state = %s, want IDLE", st.State)
	}
}

// TestManagerIdleStop verifies a session stops after the idle timeout.
func TestManagerIdleStop(t *testing.T) {
	m := newTestManager(t, fastConfig())

	sub, err := m.Subscribe("0")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitState(t, m, "0", Streaming)
	sub.Close()
	sub.Close()

	waitState(t, m, "0", Idle)
}

// TestManagerResubscribeCancelsStop verifies a subscriber arriving during
// the idle wait keeps the same session alive.
func TestManagerResubscribeCancelsStop(t *testing.T) {
	cfg := fastConfig()
	cfg.IdleTimeout = 200 * time.Millisecond
	m := newTestManager(t, cfg)

	first, err := m.Subscribe("0")
	if err != nil {
		t.Fatal(err)
	}
	waitState(t, m, "0", Streaming)

	m.mu.Lock()
	before := m.sessions["0"]
	m.mu.Unlock()

	first.Close()
	second, err := m.Subscribe("0")
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	time.Sleep(2 * cfg.IdleTimeout)
	m.mu.Lock()
	after := m.sessions["0"]
	m.mu.Unlock()
	if after != before {
		t.Error("session was replaced despite an active subscriber")
	}
	if st, _ := m.Status("0"); st.State == Idle {
		t.Error("session stopped despite an active subscriber")
	}
}

// TestManagerUnknownCamera checks lookups for ids outside the catalog.
func TestManagerUnknownCamera(t *testing.T) {
	m := newTestManager(t, fastConfig())
	if _, err := m.Subscribe("9"); !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("Subscribe err = %v, want ErrUnknownCamera", err)
	}
	if _, ok := m.Status("9"); ok {
		t.Error("Status reported an unknown camera")
	}
	if got := len(m.Cameras()); got != 2 {
		t.Errorf("cameras = %d, want 2", got)
	}
}
