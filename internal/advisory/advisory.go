// Package advisory checks weather readings for staleness and for conditions
// worth warning about when storing or taking medication.
package advisory

import (
	"time"

	"github.com/kimhsiao/dosetrack/internal/models"
)

// Advisory messages returned by Advisories.
const (
	HeatAdvisory     = "High temperature: keep medication somewhere cool and away from direct sunlight."
	HumidityAdvisory = "High humidity: keep medication sealed in a dry place."
)

// Thresholds configures Advisories and Favorable. The advisory thresholds
// trigger at or above their value; the comfort thresholds require readings
// strictly below theirs. The two pairs need not coincide, so a reading can be
// neither advised against nor favorable.
type Thresholds struct {
	HeatTemperature    float64 `json:"heat_temperature"`
	HighHumidity       float64 `json:"high_humidity"`
	ComfortTemperature float64 `json:"comfort_temperature"`
	ComfortHumidity    float64 `json:"comfort_humidity"`
}

// DefaultThresholds returns the built-in thresholds, in °C and percent.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeatTemperature:    30,
		HighHumidity:       80,
		ComfortTemperature: 28,
		ComfortHumidity:    70,
	}
}

// IsStale reports whether ts is at least maxAgeHours old at now.
func IsStale(ts time.Time, maxAgeHours float64, now time.Time) bool {
	return now.Sub(ts).Hours() >= maxAgeHours
}

// Advisories returns zero, one or two advisory messages for the reading,
// heat first.
func Advisories(r models.WeatherReading, t Thresholds) []string {
	out := []string{}
	if r.Temperature >= t.HeatTemperature {
		out = append(out, HeatAdvisory)
	}
	if r.Humidity >= t.HighHumidity {
		out = append(out, HumidityAdvisory)
	}
	return out
}

// Favorable reports whether both temperature and humidity are below their
// comfort thresholds.
func Favorable(r models.WeatherReading, t Thresholds) bool {
	return r.Temperature < t.ComfortTemperature && r.Humidity < t.ComfortHumidity
}

// Checker applies Thresholds and staleness checks against a clock.
type Checker struct {
	now        func() time.Time
	thresholds Thresholds
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithClock sets the clock used for staleness.
func WithClock(now func() time.Time) CheckerOption {
	return func(c *Checker) {
		c.now = now
	}
}

// NewChecker creates a Checker using the wall clock unless overridden.
func NewChecker(t Thresholds, opts ...CheckerOption) *Checker {
	c := &Checker{now: time.Now, thresholds: t}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsStale reports whether ts is at least maxAgeHours old.
func (c *Checker) IsStale(ts time.Time, maxAgeHours float64) bool {
	return IsStale(ts, maxAgeHours, c.now())
}

// ReadingIsStale reports whether the reading was measured at least
// maxAgeHours ago.
func (c *Checker) ReadingIsStale(r models.WeatherReading, maxAgeHours float64) bool {
	return c.IsStale(r.MeasuredAt, maxAgeHours)
}

// Report is the outcome of checking one reading.
type Report struct {
	Reading    models.WeatherReading `json:"reading"`
	Stale      bool                  `json:"stale"`
	Advisories []string              `json:"advisories"`
	Favorable  bool                  `json:"favorable"`
}

// Check evaluates a reading. A stale reading still gets its advisories; the
// caller decides whether to show them.
func (c *Checker) Check(r models.WeatherReading, maxAgeHours float64) Report {
	return Report{
		Reading:    r,
		Stale:      c.ReadingIsStale(r, maxAgeHours),
		Advisories: Advisories(r, c.thresholds),
		Favorable:  Favorable(r, c.thresholds),
	}
}
