package tle

import "time"

// Entry is one satellite's two-line element set.
type Entry struct {
	CatalogNumber int
	Name          string
	Epoch         time.Time
	Line1         string
	Line2         string
	// FetchedAt is when this element set was retrieved from the source.
	FetchedAt time.Time
	// Cached is true when the entry came from the persistent cache
	// rather than a fetch in the current refresh.
	Cached bool
}

// EpochRange is the minimum and maximum epoch in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is the set of element sets available for propagation.
type Dataset struct {
	RefreshedAt time.Time
	EpochRange  EpochRange
	Entries     []Entry
}

// Lookup returns the entry with the given catalog number.
func (d *Dataset) Lookup(catalog int) (Entry, bool) {
	for _, e := range d.Entries {
		if e.CatalogNumber == catalog {
			return e, true
		}
	}
	return Entry{}, false
}

func epochRange(entries []Entry) EpochRange {
	if len(entries) == 0 {
		return EpochRange{}
	}
	r := EpochRange{Min: entries[0].Epoch, Max: entries[0].Epoch}
	for _, e := range entries[1:] {
		if e.Epoch.Before(r.Min) {
			r.Min = e.Epoch
		}
		if e.Epoch.After(r.Max) {
			r.Max = e.Epoch
		}
	}
	return r
}
