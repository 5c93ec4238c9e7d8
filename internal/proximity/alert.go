// Package proximity classifies close pairs of tracks into typed alerts.
package proximity

import "time"

// Severity ranks an alert.
type Severity string

const (
	Critical Severity = "CRITICAL"
	Warning  Severity = "WARNING"
	Info     Severity = "INFO"
)

// Category names the pair of classes an alert involves.
type Category string

const (
	AircraftAircraft   Category = "AIRCRAFT_AIRCRAFT"
	SatelliteSatellite Category = "SATELLITE_SATELLITE"
	AircraftSatellite  Category = "AIRCRAFT_SATELLITE"
)

// Categories lists every category in reporting order.
var Categories = []Category{AircraftAircraft, SatelliteSatellite, AircraftSatellite}

// Alert is one flagged proximity. SubjectIDs are sorted lexicographically.
// Alerts are values and are never modified after Classify returns them.
type Alert struct {
	Severity       Severity  `json:"severity"`
	Category       Category  `json:"category"`
	SubjectIDs     [2]string `json:"subject_ids"`
	HorizontalM    float64   `json:"horizontal_m"`
	VerticalM      float64   `json:"vertical_m"`
	CycleTimestamp time.Time `json:"cycle_timestamp"`
	Message        string    `json:"message"`
	Details        string    `json:"details"`
}

// Rule is one row of the threshold matrix. A zero MaxVerticalM means the
// vertical separation is ignored.
type Rule struct {
	Category       Category
	Severity       Severity
	MaxHorizontalM float64
	MaxVerticalM   float64
}

// Rules holds the three class-pair rules.
type Rules struct {
	AircraftAircraft   Rule
	SatelliteSatellite Rule
	AircraftSatellite  Rule
}

// DefaultRules is the standard threshold matrix. Both limits are strict.
var DefaultRules = Rules{
	AircraftAircraft: Rule{
		Category:       AircraftAircraft,
		Severity:       Critical,
		MaxHorizontalM: 10_000,
		MaxVerticalM:   1_000,
	},
	SatelliteSatellite: Rule{
		Category:       SatelliteSatellite,
		Severity:       Warning,
		MaxHorizontalM: 100_000,
		MaxVerticalM:   10_000,
	},
	AircraftSatellite: Rule{
		Category:       AircraftSatellite,
		Severity:       Info,
		MaxHorizontalM: 50_000,
	},
}

func (r Rule) match(horizontal, vertical float64) bool {
	if horizontal >= r.MaxHorizontalM {
		return false
	}
	return r.MaxVerticalM == 0 || vertical < r.MaxVerticalM
}
