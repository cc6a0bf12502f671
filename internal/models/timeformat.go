// Package models provides data model definitions for DoseTrack Core.
package models

import (
	"fmt"
	"time"
)

// Every date and timestamp that is compared as a string is emitted through one
// of these layouts. Lexicographic ordering of two values in the same layout
// matches their chronological ordering; values in different layouts must not
// be compared.
const (
	// DateLayout is a calendar date.
	DateLayout = "2006-01-02"

	// ScheduledLayout is a naive local timestamp with second precision and no
	// offset. Scheduled occurrence times use it.
	ScheduledLayout = "2006-01-02T15:04:05"

	// InstantLayout is a UTC instant. Actual-intake times use it.
	InstantLayout = "2006-01-02T15:04:05Z"

	// TimeOfDayLayout is a zero-padded 24h time of day.
	TimeOfDayLayout = "15:04"
)

// FormatDate renders the calendar date of t, dropping time of day.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatInstant renders t as a UTC instant.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// NormalizeDate reduces an ISO date or timestamp string to its calendar date
// part. Strings shorter than a date are returned unchanged.
func NormalizeDate(s string) string {
	if len(s) >= len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}

// ParseDate parses the calendar date part of an ISO date or timestamp string.
// The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, NormalizeDate(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// ValidDate reports whether s is exactly a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidTimeOfDay reports whether s is exactly a zero-padded HH:MM time.
func ValidTimeOfDay(s string) bool {
	if len(s) != len(TimeOfDayLayout) {
		return false
	}
	_, err := time.Parse(TimeOfDayLayout, s)
	return err == nil
}

// ValidScheduledTime reports whether s is exactly a ScheduledLayout timestamp.
func ValidScheduledTime(s string) bool {
	if len(s) != len(ScheduledLayout) {
		return false
	}
	_, err := time.Parse(ScheduledLayout, s)
	return err == nil
}

// ScheduledTime builds the scheduled timestamp for a calendar date and time of day.
func ScheduledTime(date, timeOfDay string) string {
	return date + "T" + timeOfDay + ":00"
}

// OccurrenceKey is the natural key joining occurrences and intake records.
func OccurrenceKey(medicationID, scheduledTime string) string {
	return medicationID + "_" + scheduledTime
}
