// Package schedule expands medication definitions into dated occurrences.
//
// Generation is pure: the same definitions and date always yield the same,
// identically ordered occurrences, and no clock is read. All comparisons are
// between strings in models.DateLayout and models.ScheduledLayout.
package schedule

import (
	"sort"
	"time"

	"github.com/kimhsiao/dosetrack/internal/models"
)

// Generate returns the occurrences due on the calendar date of date, sorted by
// scheduled time. Definitions with no times of day contribute nothing.
func Generate(defs []*models.MedicationDefinition, date time.Time) []models.ScheduleOccurrence {
	return generateDay(defs, models.FormatDate(date))
}

// GenerateForDate is Generate for a YYYY-MM-DD date or any longer ISO
// timestamp, of which only the date part is used.
func GenerateForDate(defs []*models.MedicationDefinition, date string) ([]models.ScheduleOccurrence, error) {
	d, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return Generate(defs, d), nil
}

// GenerateRange runs Generate for every calendar day in [start, end] and
// keys each day's occurrences by its YYYY-MM-DD date. Days with nothing due
// still get an entry. An inverted range yields an empty map.
func GenerateRange(defs []*models.MedicationDefinition, start, end time.Time) map[string][]models.ScheduleOccurrence {
	days := Days(start, end)
	out := make(map[string][]models.ScheduleOccurrence, len(days))
	for _, day := range days {
		out[day] = generateDay(defs, day)
	}
	return out
}

// Days lists the calendar dates from start to end inclusive.
func Days(start, end time.Time) []string {
	first, _ := models.ParseDate(models.FormatDate(start))
	last, _ := models.ParseDate(models.FormatDate(end))

	var days []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, models.FormatDate(d))
	}
	return days
}

// InRange reports whether def is due on the YYYY-MM-DD date day. Both the
// start and the end date are inclusive.
func InRange(def *models.MedicationDefinition, day string) bool {
	if day < models.NormalizeDate(def.StartDate) {
		return false
	}
	if def.HasEndDate() && day > models.NormalizeDate(*def.EndDate) {
		return false
	}
	return true
}

func generateDay(defs []*models.MedicationDefinition, day string) []models.ScheduleOccurrence {
	occurrences := []models.ScheduleOccurrence{}
	for _, def := range defs {
		if def == nil || !InRange(def, day) {
			continue
		}
		for _, tod := range def.Times {
			occurrences = append(occurrences, models.NewOccurrence(def, models.ScheduledTime(day, tod)))
		}
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].ScheduledTime < occurrences[j].ScheduledTime
	})
	return occurrences
}
