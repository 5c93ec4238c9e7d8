package snapshot

import (
	"sync/atomic"
	"time"
)

// Store provides lock-free access to the latest published Snapshot. There is
// one writer, the refresh loop; readers never block it.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the latest snapshot, or nil before the first publish.
func (s *Store) Get() *Snapshot {
	return s.current.Load()
}

// Set atomically replaces the published snapshot. The caller must not
// modify snap afterwards.
func (s *Store) Set(snap *Snapshot) {
	s.current.Store(snap)
}

// Ready reports whether a snapshot has been published.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

// AgeSeconds returns the age of the current snapshot in seconds.
// Returns -1 if nothing has been published.
func (s *Store) AgeSeconds() float64 {
	snap := s.current.Load()
	if snap == nil {
		return -1
	}
	return time.Since(snap.Timestamp).Seconds()
}
