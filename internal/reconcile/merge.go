// Package reconcile overlays recorded intake onto generated occurrences.
package reconcile

import (
	"github.com/kimhsiao/dosetrack/internal/models"
)

// Merge returns a copy of occurrences in the same order, where every
// occurrence whose key matches an intake record carries that record's
// completion state, actual time and id. Unmatched occurrences are copied
// unchanged. When several records share a key, the last one in records wins.
// Neither input is modified.
func Merge(occurrences []models.ScheduleOccurrence, records []*models.IntakeRecord) []models.ScheduleOccurrence {
	byKey := make(map[string]*models.IntakeRecord, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		byKey[r.Key()] = r
	}

	merged := make([]models.ScheduleOccurrence, len(occurrences))
	for i, occ := range occurrences {
		r, ok := byKey[occ.Key()]
		if !ok {
			merged[i] = occ
			continue
		}

		occ.Completed = r.Completed
		occ.ActualTime = nil
		if r.ActualTime != nil {
			at := *r.ActualTime
			occ.ActualTime = &at
		}
		id := r.ID
		occ.RecordID = &id
		merged[i] = occ
	}
	return merged
}

// Duplicates returns the occurrence keys held by more than one record, each
// with its records in input order. Merge resolves such keys to the last
// record; callers use this to report the ambiguity.
func Duplicates(records []*models.IntakeRecord) map[string][]*models.IntakeRecord {
	byKey := make(map[string][]*models.IntakeRecord)
	for _, r := range records {
		if r == nil {
			continue
		}
		byKey[r.Key()] = append(byKey[r.Key()], r)
	}

	dups := make(map[string][]*models.IntakeRecord)
	for key, rs := range byKey {
		if len(rs) > 1 {
			dups[key] = rs
		}
	}
	return dups
}
