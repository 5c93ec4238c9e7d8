package stream

import "sync"

// viewerLimiter caps concurrent video viewers per client address and
// across the whole server.
type viewerLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	active   int
	maxPerIP int
	maxTotal int
}

func newViewerLimiter(maxPerIP, maxTotal int) *viewerLimiter {
	if maxPerIP < 1 {
		maxPerIP = 10
	}
	if maxTotal < 1 {
		maxTotal = 1000
	}
	return &viewerLimiter{perIP: map[string]int{}, maxPerIP: maxPerIP, maxTotal: maxTotal}
}

// admit reserves a viewer slot for ip. The returned func gives the slot
// back and may be called more than once. held is the number of slots ip
// already holds, reported for logging when admission fails.
func (l *viewerLimiter) admit(ip string) (done func(), held int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	held = l.perIP[ip]
	if held >= l.maxPerIP || l.active >= l.maxTotal {
		return nil, held, false
	}
	l.perIP[ip] = held + 1
	l.active++

	var once sync.Once
	return func() { once.Do(func() { l.leave(ip) }) }, held, true
}

func (l *viewerLimiter) leave(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active--
	if n := l.perIP[ip] - 1; n > 0 {
		l.perIP[ip] = n
	} else {
		delete(l.perIP, ip)
	}
}
