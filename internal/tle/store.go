package tle

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store holds the latest dataset. Reads never block; refreshes take the
// refresh lock so only one runs at a time.
type Store struct {
	current atomic.Pointer[Dataset]
	refresh sync.Mutex
}

func NewStore() *Store {
	return new(Store)
}

// Get returns the current dataset, or nil before the first load.
func (s *Store) Get() *Dataset {
	return s.current.Load()
}

func (s *Store) Set(ds *Dataset) {
	s.current.Store(ds)
}

// Fresh returns the current dataset if it was refreshed less than maxAge
// before now. A dataset warmed from the cache is never fresh.
func (s *Store) Fresh(now time.Time, maxAge time.Duration) (*Dataset, bool) {
	ds := s.current.Load()
	if ds == nil || ds.RefreshedAt.IsZero() || now.Sub(ds.RefreshedAt) >= maxAge {
		return nil, false
	}
	return ds, true
}

// Age reports how long before now the dataset was refreshed. ok is false
// when nothing has been fetched yet.
func (s *Store) Age(now time.Time) (age time.Duration, ok bool) {
	ds := s.current.Load()
	if ds == nil || ds.RefreshedAt.IsZero() {
		return 0, false
	}
	return now.Sub(ds.RefreshedAt), true
}
