// Package models provides data model definitions for DoseTrack Core.
package models

import "time"

// IntakeRecord is the durable fact that one scheduled occurrence was acted on.
type IntakeRecord struct {
	ID            string     `db:"id" json:"id" yaml:"id"`
	MedicationID  string     `db:"medication_id" json:"medication_id" yaml:"medication_id"`
	ScheduledTime string     `db:"scheduled_time" json:"scheduled_time" yaml:"scheduled_time"` // ScheduledLayout
	ActualTime    *time.Time `db:"actual_time" json:"actual_time,omitempty" yaml:"actual_time,omitempty"`
	Completed     bool       `db:"completed" json:"completed" yaml:"completed"`
	CreatedAt     int64      `db:"created_at" json:"created_at" yaml:"created_at"`
}

// TableName returns the table name for IntakeRecord.
func (IntakeRecord) TableName() string {
	return "intake_records"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (r *IntakeRecord) CreatedAtTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

// Key returns the occurrence key this record answers for.
func (r *IntakeRecord) Key() string {
	return OccurrenceKey(r.MedicationID, r.ScheduledTime)
}

// IntakePatch holds a partial update to an IntakeRecord.
type IntakePatch struct {
	ScheduledTime   *string
	ActualTime      *time.Time
	ClearActualTime bool
	Completed       *bool
}

// Apply merges the patch into r.
func (p IntakePatch) Apply(r *IntakeRecord) {
	if p.ScheduledTime != nil {
		r.ScheduledTime = *p.ScheduledTime
	}
	if p.ClearActualTime {
		r.ActualTime = nil
	} else if p.ActualTime != nil {
		at := p.ActualTime.UTC().Truncate(time.Second)
		r.ActualTime = &at
	}
	if p.Completed != nil {
		r.Completed = *p.Completed
	}
}
