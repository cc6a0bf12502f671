// Package models provides data model definitions for DoseTrack Core.
package models

import (
	"fmt"
	"strings"
	"time"
)

// MedicationDefinition is the recurring schedule template for one medication.
type MedicationDefinition struct {
	ID        string   `db:"id" json:"id" yaml:"id"`
	Name      string   `db:"name" json:"name" yaml:"name"`
	Dosage    string   `db:"dosage" json:"dosage" yaml:"dosage"`
	Frequency int      `db:"frequency" json:"frequency" yaml:"frequency"`
	Times     []string `db:"times" json:"times" yaml:"times"` // HH:MM, stored comma-separated
	StartDate string   `db:"start_date" json:"start_date" yaml:"start_date"`
	EndDate   *string  `db:"end_date" json:"end_date,omitempty" yaml:"end_date,omitempty"` // inclusive, nil = open-ended
	Notes     string   `db:"notes" json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt int64    `db:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt int64    `db:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// TableName returns the table name for MedicationDefinition.
func (MedicationDefinition) TableName() string {
	return "medications"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (m *MedicationDefinition) CreatedAtTime() time.Time {
	return time.Unix(m.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (m *MedicationDefinition) UpdatedAtTime() time.Time {
	return time.Unix(m.UpdatedAt, 0)
}

// Touch sets the UpdatedAt timestamp.
func (m *MedicationDefinition) Touch(now time.Time) {
	m.UpdatedAt = now.Unix()
}

// HasEndDate reports whether the definition has an end date.
func (m *MedicationDefinition) HasEndDate() bool {
	return m.EndDate != nil && *m.EndDate != ""
}

// Validate checks the definition against the write-time rules: a name, a
// well-formed start date, an end date not before the start date, and exactly
// Frequency distinct, well-formed times of day.
func (m *MedicationDefinition) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !ValidDate(m.StartDate) {
		return fmt.Errorf("start date %q is not YYYY-MM-DD", m.StartDate)
	}
	if m.HasEndDate() {
		if !ValidDate(*m.EndDate) {
			return fmt.Errorf("end date %q is not YYYY-MM-DD", *m.EndDate)
		}
		if *m.EndDate < m.StartDate {
			return fmt.Errorf("end date %s is before start date %s", *m.EndDate, m.StartDate)
		}
	}
	if m.Frequency < 0 {
		return fmt.Errorf("frequency must not be negative")
	}
	if len(m.Times) != m.Frequency {
		return fmt.Errorf("frequency is %d but %d times of day were given", m.Frequency, len(m.Times))
	}
	seen := make(map[string]bool, len(m.Times))
	for _, t := range m.Times {
		if !ValidTimeOfDay(t) {
			return fmt.Errorf("time of day %q is not HH:MM", t)
		}
		if seen[t] {
			return fmt.Errorf("time of day %s is listed twice", t)
		}
		seen[t] = true
	}
	return nil
}

// JoinTimes encodes a times-of-day list for storage.
func JoinTimes(times []string) string {
	return strings.Join(times, ",")
}

// SplitTimes decodes a stored times-of-day list.
func SplitTimes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// DefinitionPatch holds a partial update to a MedicationDefinition.
// Nil fields are left unchanged. A non-nil empty Times clears the list.
type DefinitionPatch struct {
	Name         *string
	Dosage       *string
	Frequency    *int
	Times        []string
	StartDate    *string
	EndDate      *string
	ClearEndDate bool
	Notes        *string
}

// Apply merges the patch into m.
func (p DefinitionPatch) Apply(m *MedicationDefinition) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Dosage != nil {
		m.Dosage = *p.Dosage
	}
	if p.Frequency != nil {
		m.Frequency = *p.Frequency
	}
	if p.Times != nil {
		m.Times = append([]string{}, p.Times...)
	}
	if p.StartDate != nil {
		m.StartDate = *p.StartDate
	}
	if p.ClearEndDate {
		m.EndDate = nil
	} else if p.EndDate != nil {
		end := *p.EndDate
		m.EndDate = &end
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p DefinitionPatch) IsEmpty() bool {
	return p.Name == nil && p.Dosage == nil && p.Frequency == nil && p.Times == nil &&
		p.StartDate == nil && p.EndDate == nil && !p.ClearEndDate && p.Notes == nil
}
