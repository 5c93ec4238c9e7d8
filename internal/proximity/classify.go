package proximity

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/kkgkaundal/sas/internal/apperr"
	"github.com/kkgkaundal/sas/internal/geo"
	"github.com/kkgkaundal/sas/internal/spatial"
	"github.com/kkgkaundal/sas/internal/track"
)

// Classifier applies a threshold matrix to the tracks of one cycle.
type Classifier struct {
	rules  Rules
	logger *slog.Logger
}

// NewClassifier returns a Classifier using rules.
func NewClassifier(rules Rules, logger *slog.Logger) *Classifier {
	return &Classifier{rules: rules, logger: logger.With("component", "classifier")}
}

// Classify returns the alerts for one cycle, grouped by category in
// Categories order and sorted by subject ids within each group.
//
// Tracks of the wrong class or with non-finite position are logged and
// excluded; they never abort classification of the rest. Cameras never
// participate.
func (c *Classifier) Classify(aircraft, satellites []track.Track, cycle time.Time) []Alert {
	planes := c.usable(aircraft, track.Aircraft)
	sats := c.usable(satellites, track.Satellite)

	var alerts []Alert
	alerts = append(alerts, c.within(planes, c.rules.AircraftAircraft, cycle)...)
	alerts = append(alerts, c.within(sats, c.rules.SatelliteSatellite, cycle)...)
	alerts = append(alerts, c.across(planes, sats, c.rules.AircraftSatellite, cycle)...)
	return alerts
}

func (c *Classifier) usable(in []track.Track, class track.Class) []track.Track {
	out := make([]track.Track, 0, len(in))
	for _, t := range in {
		if err := validate(t, class); err != nil {
			c.logger.Error("excluding track from classification",
				"track_id", t.ID,
				"class", string(t.Class),
				"error", err,
			)
			continue
		}
		out = append(out, t)
	}
	return out
}

func validate(t track.Track, class track.Class) error {
	const op = "proximity.classify"
	if t.Class != class {
		return apperr.New(op, apperr.ErrClassificationInputInvalid,
			fmt.Sprintf("expected class %s", class), nil)
	}
	if !geo.ValidCoordinate(t.Lat, t.Lon) {
		return apperr.New(op, apperr.ErrClassificationInputInvalid,
			fmt.Sprintf("invalid position %v,%v", t.Lat, t.Lon), nil)
	}
	if math.IsNaN(t.AltM) || math.IsInf(t.AltM, 0) {
		return apperr.New(op, apperr.ErrClassificationInputInvalid, "non-finite altitude", nil)
	}
	return nil
}

func (c *Classifier) within(tracks []track.Track, rule Rule, cycle time.Time) []Alert {
	var out []Alert
	for _, p := range spatial.SelfPairs(tracks, rule.MaxHorizontalM) {
		if a, ok := evaluate(tracks[p.I], tracks[p.J], rule, cycle); ok {
			out = append(out, a)
		}
	}
	sortAlerts(out)
	return out
}

func (c *Classifier) across(planes, sats []track.Track, rule Rule, cycle time.Time) []Alert {
	var out []Alert
	for _, p := range spatial.CrossPairs(planes, sats, rule.MaxHorizontalM) {
		if a, ok := evaluate(planes[p.I], sats[p.J], rule, cycle); ok {
			out = append(out, a)
		}
	}
	sortAlerts(out)
	return out
}

// Separation returns the horizontal and vertical distance between a and b
// in meters. The arguments are put in a canonical order first so the result
// does not depend on which track is passed first.
func Separation(a, b track.Track) (horizontal, vertical float64) {
	if less(b, a) {
		a, b = b, a
	}
	return geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon), math.Abs(a.AltM - b.AltM)
}

func less(a, b track.Track) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if a.Lat != b.Lat {
		return a.Lat < b.Lat
	}
	if a.Lon != b.Lon {
		return a.Lon < b.Lon
	}
	return a.AltM < b.AltM
}

// evaluate applies rule to the ordered pair (first, second). For the
// aircraft-satellite rule, first is the aircraft.
func evaluate(first, second track.Track, rule Rule, cycle time.Time) (Alert, bool) {
	h, v := Separation(first, second)
	if !rule.match(h, v) {
		return Alert{}, false
	}

	ids := [2]string{first.ID, second.ID}
	if ids[1] < ids[0] {
		ids[0], ids[1] = ids[1], ids[0]
	}

	a := Alert{
		Severity:       rule.Severity,
		Category:       rule.Category,
		SubjectIDs:     ids,
		HorizontalM:    h,
		VerticalM:      v,
		CycleTimestamp: cycle,
	}
	switch rule.Category {
	case AircraftAircraft:
		a.Message = fmt.Sprintf("Potential collision between %s and %s", ids[0], ids[1])
		a.Details = fmt.Sprintf("Horizontal: %.0fm, Vertical: %.0fm", h, v)
	case SatelliteSatellite:
		a.Message = fmt.Sprintf("Proximity between %s and %s", ids[0], ids[1])
		a.Details = fmt.Sprintf("Horizontal: %.0fm, Vertical: %.0fm", h, v)
	case AircraftSatellite:
		a.Message = fmt.Sprintf("Plane %s under %s ground track", first.ID, second.ID)
		a.Details = fmt.Sprintf("Horizontal distance: %.0fm", h)
	}
	return a, true
}

func sortAlerts(alerts []Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].SubjectIDs[0] != alerts[j].SubjectIDs[0] {
			return alerts[i].SubjectIDs[0] < alerts[j].SubjectIDs[0]
		}
		return alerts[i].SubjectIDs[1] < alerts[j].SubjectIDs[1]
	})
}
