package camera

import "sync"

// broadcaster hands the latest frame to every subscriber. Each subscriber
// has a one-slot channel; a newer frame replaces an unread one, so a slow
// reader never holds up the session.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[chan Frame]struct{}
	latest *Frame
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan Frame]struct{})}
}

// subscribe registers a channel, primed with the latest frame if any.
func (b *broadcaster) subscribe() chan Frame {
	ch := make(chan Frame, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest != nil {
		ch <- *b.latest
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, ch)
}

// publish is only ever called by the session goroutine.
func (b *broadcaster) publish(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = &f
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- f
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
