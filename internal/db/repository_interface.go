// Package db provides repository interfaces for DoseTrack data models.
package db

import (
	"context"

	"github.com/kimhsiao/dosetrack/internal/models"
)

// DefinitionRepository defines operations for medication definition persistence.
type DefinitionRepository interface {
	// CreateDefinition persists a new definition and returns its id.
	CreateDefinition(ctx context.Context, def *models.MedicationDefinition) (string, error)

	// GetDefinition retrieves a definition by ID, or nil when absent.
	GetDefinition(ctx context.Context, id string) (*models.MedicationDefinition, error)

	// ListDefinitions returns all definitions.
	ListDefinitions(ctx context.Context) ([]*models.MedicationDefinition, error)

	// ListActiveDefinitions returns definitions that have not ended.
	ListActiveDefinitions(ctx context.Context) ([]*models.MedicationDefinition, error)

	// ListDefinitionsInRange returns definitions covering any date in [start, end].
	ListDefinitionsInRange(ctx context.Context, start, end string) ([]*models.MedicationDefinition, error)

	// UpdateDefinition applies a partial update and returns rows updated.
	UpdateDefinition(ctx context.Context, id string, patch models.DefinitionPatch) (int64, error)

	// DeleteDefinition deletes a definition and its intake records atomically.
	DeleteDefinition(ctx context.Context, id string) (int64, error)
}

// IntakeRepository defines operations for intake record persistence.
type IntakeRepository interface {
	CreateIntakeRecord(ctx context.Context, r *models.IntakeRecord) (string, error)
	GetIntakeRecord(ctx context.Context, id string) (*models.IntakeRecord, error)
	GetRecordsByMedication(ctx context.Context, medicationID string) ([]*models.IntakeRecord, error)
	GetRecordsByTimeRange(ctx context.Context, start, end string) ([]*models.IntakeRecord, error)
	UpdateIntakeRecord(ctx context.Context, id string, patch models.IntakePatch) (int64, error)
	MarkComplete(ctx context.Context, id string) (int64, error)
	RecordIntake(ctx context.Context, medicationID, scheduledTime string, completed bool) (*models.IntakeRecord, error)
}

// SnapshotRepository reads and restores the whole dataset.
type SnapshotRepository interface {
	ListDefinitions(ctx context.Context) ([]*models.MedicationDefinition, error)
	ListIntakeRecords(ctx context.Context) ([]*models.IntakeRecord, error)
	Restore(ctx context.Context, defs []*models.MedicationDefinition, records []*models.IntakeRecord) (*RestoreResult, error)
}

// Repository combines every persistence operation the presentation layer uses.
type Repository interface {
	DefinitionRepository
	IntakeRepository
}

// Ensure *Store implements the interfaces at compile time.
var (
	_ DefinitionRepository = (*Store)(nil)
	_ IntakeRepository     = (*Store)(nil)
	_ SnapshotRepository   = (*Store)(nil)
	_ Repository           = (*Store)(nil)
)
