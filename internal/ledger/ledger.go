// Package ledger keeps a bounded history of per-cycle counts and the most
// recent cycle's alerts.
package ledger

import (
	"sync"
	"time"

	"github.com/kkgkaundal/sas/internal/proximity"
)

// DefaultSize is the number of cycles retained when none is configured.
const DefaultSize = 10

// Entry is the summary of one completed cycle.
type Entry struct {
	Timestamp  time.Time                  `json:"timestamp"`
	Planes     int                        `json:"planes"`
	Satellites int                        `json:"satellites"`
	Alerts     int                        `json:"alerts"`
	ByCategory map[proximity.Category]int `json:"by_category"`
}

// View is an immutable copy of the ledger at one point in time.
type View struct {
	History      []Entry           `json:"history"`
	LatestAlerts []proximity.Alert `json:"latest_alerts"`
}

// Ledger records cycle summaries. Record is safe for concurrent use, though
// the refresh loop is its only caller.
type Ledger struct {
	mu      sync.Mutex
	size    int
	entries []Entry
	latest  []proximity.Alert
}

// New returns a Ledger retaining the last size cycles. A non-positive size
// uses DefaultSize.
func New(size int) *Ledger {
	if size <= 0 {
		size = DefaultSize
	}
	return &Ledger{size: size, entries: make([]Entry, 0, size)}
}

// Record appends the summary of one cycle and replaces the latest alerts.
// Every alert is counted; nothing is suppressed across cycles.
func (l *Ledger) Record(at time.Time, planes, satellites int, alerts []proximity.Alert) View {
	byCat := make(map[proximity.Category]int, len(proximity.Categories))
	for _, c := range proximity.Categories {
		byCat[c] = 0
	}
	for _, a := range alerts {
		byCat[a.Category]++
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{
		Timestamp:  at,
		Planes:     planes,
		Satellites: satellites,
		Alerts:     len(alerts),
		ByCategory: byCat,
	})
	if over := len(l.entries) - l.size; over > 0 {
		// Shift rather than reslice so the backing array does not grow.
		copy(l.entries, l.entries[over:])
		l.entries = l.entries[:l.size]
	}
	l.latest = append([]proximity.Alert(nil), alerts...)
	return l.viewLocked()
}

func (l *Ledger) viewLocked() View {
	v := View{
		History:      make([]Entry, len(l.entries)),
		LatestAlerts: make([]proximity.Alert, len(l.latest)),
	}
	for i, e := range l.entries {
		cp := e
		cp.ByCategory = make(map[proximity.Category]int, len(e.ByCategory))
		for k, n := range e.ByCategory {
			cp.ByCategory[k] = n
		}
		v.History[i] = cp
	}
	copy(v.LatestAlerts, l.latest)
	return v
}

// Counts returns the per-category counts of the retained cycles, oldest
// first.
func (v View) Counts(c proximity.Category) []int {
	out := make([]int, len(v.History))
	for i, e := range v.History {
		out[i] = e.ByCategory[c]
	}
	return out
}
