package models

import "time"

// ScheduleOccurrence is one dated instance of a definition being due. It is
// derived, never persisted.
type ScheduleOccurrence struct {
	ID             string     `json:"id"`
	MedicationID   string     `json:"medication_id"`
	MedicationName string     `json:"medication_name"`
	Dosage         string     `json:"dosage"`
	ScheduledTime  string     `json:"scheduled_time"`
	Completed      bool       `json:"completed"`
	ActualTime     *time.Time `json:"actual_time,omitempty"`
	RecordID       *string    `json:"record_id,omitempty"`
}

// NewOccurrence builds a not-yet-taken occurrence of def at scheduledTime.
func NewOccurrence(def *MedicationDefinition, scheduledTime string) ScheduleOccurrence {
	return ScheduleOccurrence{
		ID:             OccurrenceKey(def.ID, scheduledTime),
		MedicationID:   def.ID,
		MedicationName: def.Name,
		Dosage:         def.Dosage,
		ScheduledTime:  scheduledTime,
	}
}

// Key returns the natural key of the occurrence.
func (o ScheduleOccurrence) Key() string {
	return OccurrenceKey(o.MedicationID, o.ScheduledTime)
}

// Date returns the calendar date the occurrence falls on.
func (o ScheduleOccurrence) Date() string {
	return NormalizeDate(o.ScheduledTime)
}
