// Package db provides CRUD operations for medication definitions and intake records.
package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
	"github.com/kimhsiao/dosetrack/internal/logging"
	"github.com/kimhsiao/dosetrack/internal/models"
)

// Store is the persistence handle for definitions and intake records.
// It is created once at startup and closed at shutdown.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *logging.Logger

	// Prepared statements for the read paths the presentation layer polls.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used for created/updated/actual timestamps and for
// the active-definition cutoff.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store over an open, migrated database.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:     db,
		now:    time.Now,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// prepareStmt gets or creates a prepared statement from the cache.
func (s *Store) prepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements. The underlying database is
// owned by the caller and stays open.
func (s *Store) Close() error {
	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

func storageError(action string, err error) error {
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return apperrors.Wrap(apperrors.ErrConstraint,
			fmt.Sprintf("Could not %s: the medication no longer exists.", action), err)
	}
	return apperrors.Wrap(apperrors.ErrStorage,
		fmt.Sprintf("Could not %s. Local storage is unavailable or full.", action), err)
}

func validationError(err error) error {
	return apperrors.Wrap(apperrors.ErrValidation, err.Error(), err)
}

// =====================================================
// MedicationDefinition Operations
// =====================================================

const definitionColumns = `id, name, dosage, frequency, times, start_date, end_date, notes, created_at, updated_at`

// CreateDefinition assigns a fresh id and timestamps to def, persists it, and
// returns the id.
func (s *Store) CreateDefinition(ctx context.Context, def *models.MedicationDefinition) (string, error) {
	if err := def.Validate(); err != nil {
		return "", validationError(err)
	}

	now := s.now().Unix()
	def.ID = uuid.New().String()
	def.CreatedAt = now
	def.UpdatedAt = now

	if err := insertDefinition(ctx, s.db, def, false); err != nil {
		return "", storageError("save the medication", err)
	}

	s.logger.Debug("medication created", map[string]interface{}{"medication_id": def.ID})
	return def.ID, nil
}

func insertDefinition(ctx context.Context, q querier, def *models.MedicationDefinition, ignoreExisting bool) error {
	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	query := verb + ` INTO medications (` + definitionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query, def.ID, def.Name, def.Dosage, def.Frequency,
		models.JoinTimes(def.Times), def.StartDate, nullableString(def.EndDate), def.Notes,
		def.CreatedAt, def.UpdatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDefinition(row rowScanner) (*models.MedicationDefinition, error) {
	var def models.MedicationDefinition
	var times string
	var endDate sql.NullString
	err := row.Scan(&def.ID, &def.Name, &def.Dosage, &def.Frequency, &times,
		&def.StartDate, &endDate, &def.Notes, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return nil, err
	}
	def.Times = models.SplitTimes(times)
	if endDate.Valid {
		end := endDate.String
		def.EndDate = &end
	}
	return &def, nil
}

// GetDefinition retrieves a definition by ID. It returns nil, nil when there
// is no such definition.
func (s *Store) GetDefinition(ctx context.Context, id string) (*models.MedicationDefinition, error) {
	stmt, err := s.prepareStmt(ctx, `SELECT `+definitionColumns+` FROM medications WHERE id = ?`)
	if err != nil {
		return nil, storageError("load the medication", err)
	}

	def, err := scanDefinition(stmt.QueryRowContext(ctx, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("load the medication", err)
	}
	return def, nil
}

func (s *Store) queryDefinitions(ctx context.Context, query string, args ...interface{}) ([]*models.MedicationDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := []*models.MedicationDefinition{}
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

// ListDefinitions returns all definitions. Callers must not rely on the order.
func (s *Store) ListDefinitions(ctx context.Context) ([]*models.MedicationDefinition, error) {
	defs, err := s.queryDefinitions(ctx, `SELECT `+definitionColumns+` FROM medications ORDER BY name, id`)
	if err != nil {
		return nil, storageError("list medications", err)
	}
	return defs, nil
}

// ListActiveDefinitions returns definitions with no end date or an end date
// strictly greater than the current instant. The end date string is compared
// with the current UTC instant rendered in models.InstantLayout, so a
// definition whose end date is today has already dropped out.
func (s *Store) ListActiveDefinitions(ctx context.Context) ([]*models.MedicationDefinition, error) {
	cutoff := models.FormatInstant(s.now())
	defs, err := s.queryDefinitions(ctx,
		`SELECT `+definitionColumns+` FROM medications
		WHERE end_date IS NULL OR end_date > ?
		ORDER BY name, id`, cutoff)
	if err != nil {
		return nil, storageError("list active medications", err)
	}
	return defs, nil
}

// ListDefinitionsInRange returns definitions whose inclusive date span
// overlaps the calendar dates [start, end]. Unlike ListActiveDefinitions it
// does not read the clock, so definitions that have since ended are still
// returned for the days they covered.
func (s *Store) ListDefinitionsInRange(ctx context.Context, start, end string) ([]*models.MedicationDefinition, error) {
	defs, err := s.queryDefinitions(ctx,
		`SELECT `+definitionColumns+` FROM medications
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY name, id`, models.NormalizeDate(end), models.NormalizeDate(start))
	if err != nil {
		return nil, storageError("list medications for the date range", err)
	}
	return defs, nil
}

// UpdateDefinition merges patch into the definition, refreshes its
// modification timestamp, and returns the number of rows updated (0 when the
// id does not exist). The merged definition must pass validation.
func (s *Store) UpdateDefinition(ctx context.Context, id string, patch models.DefinitionPatch) (int64, error) {
	var updated int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		def, err := scanDefinition(tx.QueryRowContext(ctx,
			`SELECT `+definitionColumns+` FROM medications WHERE id = ?`, id))
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return storageError("update the medication", err)
		}

		patch.Apply(def)
		if err := def.Validate(); err != nil {
			return validationError(err)
		}
		def.Touch(s.now())

		result, err := tx.ExecContext(ctx, `
		UPDATE medications
		SET name = ?, dosage = ?, frequency = ?, times = ?, start_date = ?, end_date = ?,
			notes = ?, updated_at = ?
		WHERE id = ?`,
			def.Name, def.Dosage, def.Frequency, models.JoinTimes(def.Times), def.StartDate,
			nullableString(def.EndDate), def.Notes, def.UpdatedAt, def.ID)
		if err != nil {
			return storageError("update the medication", err)
		}
		updated, err = result.RowsAffected()
		if err != nil {
			return storageError("update the medication", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrInternal {
			err = storageError("update the medication", err)
		}
		return 0, err
	}
	return updated, nil
}

// DeleteDefinition deletes the definition and every intake record that
// references it as one transaction. It returns the number of definitions
// deleted (0 when the id does not exist). On failure nothing is deleted.
func (s *Store) DeleteDefinition(ctx context.Context, id string) (int64, error) {
	var deleted, records int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM intake_records WHERE medication_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete intake records: %w", err)
		}
		if records, err = result.RowsAffected(); err != nil {
			return err
		}

		result, err = tx.ExecContext(ctx, `DELETE FROM medications WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete medication: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		s.logger.Error("cascade delete rolled back", err, map[string]interface{}{"medication_id": id})
		return 0, apperrors.Wrap(apperrors.ErrCascade,
			"Could not delete the medication. Nothing was deleted; please try again.", err)
	}

	s.logger.Debug("medication deleted", map[string]interface{}{
		"medication_id": id,
		"deleted":       deleted,
		"records":       records,
	})
	return deleted, nil
}

// =====================================================
// IntakeRecord Operations
// =====================================================

const recordColumns = `id, medication_id, scheduled_time, actual_time, completed, created_at`

func validateRecord(r *models.IntakeRecord) error {
	if strings.TrimSpace(r.MedicationID) == "" {
		return validationError(fmt.Errorf("medication id must not be empty"))
	}
	if !models.ValidScheduledTime(r.ScheduledTime) {
		return validationError(fmt.Errorf("scheduled time %q is not YYYY-MM-DDTHH:MM:SS", r.ScheduledTime))
	}
	return nil
}

// CreateIntakeRecord assigns a fresh id and creation timestamp to r, persists
// it, and returns the id.
func (s *Store) CreateIntakeRecord(ctx context.Context, r *models.IntakeRecord) (string, error) {
	if err := validateRecord(r); err != nil {
		return "", err
	}

	r.ID = uuid.New().String()
	r.CreatedAt = s.now().Unix()
	if err := insertRecord(ctx, s.db, r, false); err != nil {
		return "", storageError("save the intake record", err)
	}
	return r.ID, nil
}

func insertRecord(ctx context.Context, q querier, r *models.IntakeRecord, ignoreExisting bool) error {
	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	query := verb + ` INTO intake_records (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query, r.ID, r.MedicationID, r.ScheduledTime,
		nullableInstant(r.ActualTime), r.Completed, r.CreatedAt)
	return err
}

func scanRecord(row rowScanner) (*models.IntakeRecord, error) {
	var r models.IntakeRecord
	var actual sql.NullString
	if err := row.Scan(&r.ID, &r.MedicationID, &r.ScheduledTime, &actual, &r.Completed, &r.CreatedAt); err != nil {
		return nil, err
	}
	if actual.Valid && actual.String != "" {
		at, err := time.Parse(models.InstantLayout, actual.String)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid actual time %q: %w", r.ID, actual.String, err)
		}
		r.ActualTime = &at
	}
	return &r, nil
}

func (s *Store) queryRecords(ctx context.Context, q interface {
	QueryContext(ctx context.Context, args ...interface{}) (*sql.Rows, error)
}, args ...interface{}) ([]*models.IntakeRecord, error) {
	rows, err := q.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.IntakeRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetIntakeRecord retrieves a record by ID. It returns nil, nil when there is
// no such record.
func (s *Store) GetIntakeRecord(ctx context.Context, id string) (*models.IntakeRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM intake_records WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("load the intake record", err)
	}
	return r, nil
}

// GetRecordsByMedication returns the records of one definition ordered by
// scheduled time, then insertion order.
func (s *Store) GetRecordsByMedication(ctx context.Context, medicationID string) ([]*models.IntakeRecord, error) {
	stmt, err := s.prepareStmt(ctx, `SELECT `+recordColumns+` FROM intake_records
	WHERE medication_id = ?
	ORDER BY scheduled_time, created_at, rowid`)
	if err != nil {
		return nil, storageError("load intake records", err)
	}
	records, err := s.queryRecords(ctx, stmt, medicationID)
	if err != nil {
		return nil, storageError("load intake records", err)
	}
	return records, nil
}

// GetRecordsByTimeRange returns the records whose scheduled time lies in
// [start, end], both inclusive, compared as ScheduledLayout strings. Records
// sharing an occurrence key come back in insertion order.
func (s *Store) GetRecordsByTimeRange(ctx context.Context, start, end string) ([]*models.IntakeRecord, error) {
	stmt, err := s.prepareStmt(ctx, `SELECT `+recordColumns+` FROM intake_records
	WHERE scheduled_time >= ? AND scheduled_time <= ?
	ORDER BY scheduled_time, created_at, rowid`)
	if err != nil {
		return nil, storageError("load intake records", err)
	}
	records, err := s.queryRecords(ctx, stmt, start, end)
	if err != nil {
		return nil, storageError("load intake records", err)
	}
	return records, nil
}

// ListIntakeRecords returns every record.
func (s *Store) ListIntakeRecords(ctx context.Context) ([]*models.IntakeRecord, error) {
	stmt, err := s.prepareStmt(ctx, `SELECT `+recordColumns+` FROM intake_records
	ORDER BY scheduled_time, created_at, rowid`)
	if err != nil {
		return nil, storageError("load intake records", err)
	}
	records, err := s.queryRecords(ctx, stmt)
	if err != nil {
		return nil, storageError("load intake records", err)
	}
	return records, nil
}

// UpdateIntakeRecord merges patch into the record and returns the number of
// rows updated (0 when the id does not exist).
func (s *Store) UpdateIntakeRecord(ctx context.Context, id string, patch models.IntakePatch) (int64, error) {
	var updated int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := scanRecord(tx.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM intake_records WHERE id = ?`, id))
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return storageError("update the intake record", err)
		}

		patch.Apply(r)
		if err := validateRecord(r); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
		UPDATE intake_records SET scheduled_time = ?, actual_time = ?, completed = ?
		WHERE id = ?`, r.ScheduledTime, nullableInstant(r.ActualTime), r.Completed, r.ID)
		if err != nil {
			return storageError("update the intake record", err)
		}
		updated, err = result.RowsAffected()
		if err != nil {
			return storageError("update the intake record", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrInternal {
			err = storageError("update the intake record", err)
		}
		return 0, err
	}
	return updated, nil
}

// MarkComplete sets completed and stamps the actual time with now. It returns
// the number of rows updated (0 when the id does not exist).
func (s *Store) MarkComplete(ctx context.Context, id string) (int64, error) {
	now := s.now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE intake_records SET completed = 1, actual_time = ? WHERE id = ?`,
		models.FormatInstant(now), id)
	if err != nil {
		return 0, storageError("mark the dose as taken", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storageError("mark the dose as taken", err)
	}
	return n, nil
}

// RecordIntake marks the occurrence (medicationID, scheduledTime) as taken or
// not taken. The first call for an occurrence creates its record; later calls
// update the most recent record for that occurrence in place.
func (s *Store) RecordIntake(ctx context.Context, medicationID, scheduledTime string, completed bool) (*models.IntakeRecord, error) {
	candidate := &models.IntakeRecord{MedicationID: medicationID, ScheduledTime: scheduledTime}
	if err := validateRecord(candidate); err != nil {
		return nil, err
	}

	now := s.now()
	var record *models.IntakeRecord
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := scanRecord(tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM intake_records
		WHERE medication_id = ? AND scheduled_time = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, medicationID, scheduledTime))
		switch {
		case stderrors.Is(err, sql.ErrNoRows):
			record = candidate
			record.ID = uuid.New().String()
			record.CreatedAt = now.Unix()
		case err != nil:
			return err
		default:
			record = existing
		}

		record.Completed = completed
		if completed {
			at := now.UTC().Truncate(time.Second)
			record.ActualTime = &at
		} else {
			record.ActualTime = nil
		}

		if existing == nil {
			return insertRecord(ctx, tx, record, false)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE intake_records SET completed = ?, actual_time = ? WHERE id = ?`,
			record.Completed, nullableInstant(record.ActualTime), record.ID)
		return err
	})
	if err != nil {
		return nil, storageError("record the dose", err)
	}
	return record, nil
}

// =====================================================
// Snapshot Operations
// =====================================================

// RestoreResult reports what Restore wrote.
type RestoreResult struct {
	Definitions        int
	Records            int
	SkippedDefinitions int
	SkippedRecords     int
}

// Restore inserts definitions and records with their ids and timestamps
// preserved, skipping ids that already exist, in one transaction.
func (s *Store) Restore(ctx context.Context, defs []*models.MedicationDefinition, records []*models.IntakeRecord) (*RestoreResult, error) {
	for _, def := range defs {
		if def.ID == "" {
			return nil, validationError(fmt.Errorf("medication %q has no id", def.Name))
		}
		if err := def.Validate(); err != nil {
			return nil, validationError(fmt.Errorf("medication %s: %w", def.ID, err))
		}
	}
	for _, r := range records {
		if r.ID == "" {
			return nil, validationError(fmt.Errorf("intake record for %s has no id", r.MedicationID))
		}
		if err := validateRecord(r); err != nil {
			return nil, err
		}
	}

	result := &RestoreResult{}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, def := range defs {
			before, err := countRows(ctx, tx, "medications", def.ID)
			if err != nil {
				return err
			}
			if err := insertDefinition(ctx, tx, def, true); err != nil {
				return err
			}
			if before > 0 {
				result.SkippedDefinitions++
			} else {
				result.Definitions++
			}
		}
		for _, r := range records {
			before, err := countRows(ctx, tx, "intake_records", r.ID)
			if err != nil {
				return err
			}
			if err := insertRecord(ctx, tx, r, true); err != nil {
				return err
			}
			if before > 0 {
				result.SkippedRecords++
			} else {
				result.Records++
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageError("restore the backup", err)
	}
	return result, nil
}

func countRows(ctx context.Context, q querier, table, id string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&n)
	return n, err
}

// =====================================================
// Helpers
// =====================================================

func nullableString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullableInstant(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return models.FormatInstant(*t)
}
