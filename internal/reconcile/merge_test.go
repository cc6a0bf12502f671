package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kimhsiao/dosetrack/internal/models"
)

func occurrences() []models.ScheduleOccurrence {
	def := &models.MedicationDefinition{ID: "med_001", Name: "Aspirin", Dosage: "81mg"}
	return []models.ScheduleOccurrence{
		models.NewOccurrence(def, "2024-02-09T08:00:00"),
		models.NewOccurrence(def, "2024-02-09T20:00:00"),
	}
}

func TestMerge_completedMorningDose(t *testing.T) {
	taken := time.Date(2024, 2, 9, 8, 4, 0, 0, time.UTC)
	records := []*models.IntakeRecord{{
		ID:            "rec_1",
		MedicationID:  "med_001",
		ScheduledTime: "2024-02-09T08:00:00",
		ActualTime:    &taken,
		Completed:     true,
	}}

	got := Merge(occurrences(), records)

	if len(got) != 2 {
		t.Fatalf("Merge() = %d occurrences, want 2", len(got))
	}
	morning, evening := got[0], got[1]
	if morning.ID != "med_001_2024-02-09T08:00:00" || !morning.Completed {
		t.Errorf("morning = %+v, want completed", morning)
	}
	if morning.RecordID == nil || *morning.RecordID != "rec_1" {
		t.Errorf("morning.RecordID = %v, want rec_1", morning.RecordID)
	}
	if morning.ActualTime == nil || !morning.ActualTime.Equal(taken) {
		t.Errorf("morning.ActualTime = %v, want %v", morning.ActualTime, taken)
	}
	if diff := cmp.Diff(occurrences()[1], evening); diff != "" {
		t.Errorf("evening changed (-want +got):\n%s", diff)
	}
}

func TestMerge_noRecordsIsIdentity(t *testing.T) {
	occs := occurrences()
	got := Merge(occs, nil)
	if diff := cmp.Diff(occs, got); diff != "" {
		t.Errorf("Merge(occs, nil) mismatch (-want +got):\n%s", diff)
	}
	for _, o := range got {
		if o.Completed || o.ActualTime != nil || o.RecordID != nil {
			t.Errorf("occurrence %s has non-default state: %+v", o.ID, o)
		}
	}
}

func TestMerge_keyMatchesOnlyOneOccurrence(t *testing.T) {
	other := &models.MedicationDefinition{ID: "med_002", Name: "Other"}
	occs := append(occurrences(),
		models.NewOccurrence(other, "2024-02-09T08:00:00"),
		models.NewOccurrence(other, "2024-02-10T08:00:00"),
	)
	records := []*models.IntakeRecord{{ID: "r", MedicationID: "med_002", ScheduledTime: "2024-02-09T08:00:00", Completed: true}}

	got := Merge(occs, records)

	var matched []string
	for _, o := range got {
		if o.RecordID != nil {
			matched = append(matched, o.ID)
		}
	}
	if diff := cmp.Diff([]string{"med_002_2024-02-09T08:00:00"}, matched); diff != "" {
		t.Errorf("matched occurrences mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_lastRecordWins(t *testing.T) {
	records := []*models.IntakeRecord{
		{ID: "first", MedicationID: "med_001", ScheduledTime: "2024-02-09T08:00:00", Completed: true},
		{ID: "second", MedicationID: "med_001", ScheduledTime: "2024-02-09T08:00:00", Completed: false},
	}

	got := Merge(occurrences(), records)
	if got[0].RecordID == nil || *got[0].RecordID != "second" {
		t.Errorf("RecordID = %v, want second", got[0].RecordID)
	}
	if got[0].Completed {
		t.Error("Completed = true, want the later record's false")
	}
}

func TestMerge_doesNotMutateInputs(t *testing.T) {
	occs := occurrences()
	taken := time.Date(2024, 2, 9, 20, 1, 0, 0, time.UTC)
	records := []*models.IntakeRecord{{ID: "r", MedicationID: "med_001", ScheduledTime: "2024-02-09T20:00:00", ActualTime: &taken, Completed: true}}
	recordCopy := *records[0]

	got := Merge(occs, records)

	if diff := cmp.Diff(occurrences(), occs); diff != "" {
		t.Errorf("occurrences mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(recordCopy, *records[0]); diff != "" {
		t.Errorf("record mutated (-want +got):\n%s", diff)
	}

	// The merged actual time is a copy.
	*got[1].ActualTime = got[1].ActualTime.Add(time.Hour)
	if !records[0].ActualTime.Equal(taken) {
		t.Error("merged occurrence shares ActualTime with the record")
	}
}

func TestDuplicates(t *testing.T) {
	records := []*models.IntakeRecord{
		{ID: "a", MedicationID: "m", ScheduledTime: "2024-01-01T08:00:00"},
		{ID: "b", MedicationID: "m", ScheduledTime: "2024-01-01T20:00:00"},
		{ID: "c", MedicationID: "m", ScheduledTime: "2024-01-01T08:00:00"},
	}

	dups := Duplicates(records)
	if len(dups) != 1 {
		t.Fatalf("Duplicates() = %d keys, want 1", len(dups))
	}
	rs := dups["m_2024-01-01T08:00:00"]
	if len(rs) != 2 || rs[0].ID != "a" || rs[1].ID != "c" {
		t.Errorf("Duplicates()[m_2024-01-01T08:00:00] = %v, want [a c]", rs)
	}

	if got := Duplicates(nil); len(got) != 0 {
		t.Errorf("Duplicates(nil) = %v, want empty", got)
	}
}
