// Package export provides backup and restore of all DoseTrack data.
package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kimhsiao/dosetrack/internal/db"
	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
	"github.com/kimhsiao/dosetrack/internal/models"
)

// FormatVersion is written to every manifest. Import rejects other versions.
const FormatVersion = "1"

// ExportService provides export/import functionality.
type ExportService struct {
	repo db.SnapshotRepository
	now  func() time.Time
}

// NewExportService creates a new ExportService.
func NewExportService(repo db.SnapshotRepository) *ExportService {
	return &ExportService{repo: repo, now: time.Now}
}

// ExportConfig holds export configuration.
type ExportConfig struct {
	OutputPath string // a .gz suffix compresses the snapshot
}

// ImportConfig holds import configuration.
type ImportConfig struct {
	ArchivePath string
}

// ExportManifest represents the export manifest metadata.
type ExportManifest struct {
	Version         string    `yaml:"version"`
	ExportedAt      time.Time `yaml:"exported_at"`
	MedicationCount int       `yaml:"medication_count"`
	RecordCount     int       `yaml:"record_count"`
	Checksum        string    `yaml:"checksum"`
}

// SnapshotData is the checksummed part of a snapshot.
type SnapshotData struct {
	Medications   []*models.MedicationDefinition `yaml:"medications"`
	IntakeRecords []*models.IntakeRecord         `yaml:"intake_records"`
}

// Snapshot is the file layout of an export.
type Snapshot struct {
	Manifest     ExportManifest `yaml:"manifest"`
	SnapshotData `yaml:",inline"`
}

// ExportResult represents the result of an export operation.
type ExportResult struct {
	FilePath        string
	SizeBytes       int64
	MedicationCount int
	RecordCount     int
	Checksum        string
	Duration        time.Duration
}

// ImportResult represents the result of an import operation.
type ImportResult struct {
	ImportedMedications int
	ImportedRecords     int
	SkippedMedications  int
	SkippedRecords      int
	Duration            time.Duration
}

// Export writes every definition and intake record to config.OutputPath.
func (s *ExportService) Export(ctx context.Context, config *ExportConfig) (*ExportResult, error) {
	startTime := s.now()

	if config.OutputPath == "" {
		return nil, apperrors.New(apperrors.ErrExportFailed, "An output file is required.")
	}

	defs, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListIntakeRecords(ctx)
	if err != nil {
		return nil, err
	}

	data := SnapshotData{Medications: defs, IntakeRecords: records}
	checksum, err := checksumOf(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "Could not encode the backup.", err)
	}

	snapshot := Snapshot{
		Manifest: ExportManifest{
			Version:         FormatVersion,
			ExportedAt:      startTime.UTC().Truncate(time.Second),
			MedicationCount: len(defs),
			RecordCount:     len(records),
			Checksum:        checksum,
		},
		SnapshotData: data,
	}
	content, err := yaml.Marshal(&snapshot)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "Could not encode the backup.", err)
	}

	sizeBytes, err := writeFile(config.OutputPath, content)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed,
			fmt.Sprintf("Could not write the backup to %s.", config.OutputPath), err)
	}

	return &ExportResult{
		FilePath:        config.OutputPath,
		SizeBytes:       sizeBytes,
		MedicationCount: len(defs),
		RecordCount:     len(records),
		Checksum:        checksum,
		Duration:        s.now().Sub(startTime),
	}, nil
}

// Import reads a snapshot written by Export, verifies its checksum and
// restores it. Definitions and records whose ids already exist are skipped.
func (s *ExportService) Import(ctx context.Context, config *ImportConfig) (*ImportResult, error) {
	startTime := s.now()

	snapshot, err := ReadSnapshot(config.ArchivePath)
	if err != nil {
		return nil, err
	}

	restored, err := s.repo.Restore(ctx, snapshot.Medications, snapshot.IntakeRecords)
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		ImportedMedications: restored.Definitions,
		ImportedRecords:     restored.Records,
		SkippedMedications:  restored.SkippedDefinitions,
		SkippedRecords:      restored.SkippedRecords,
		Duration:            s.now().Sub(startTime),
	}, nil
}

// ReadSnapshot reads and verifies a snapshot file without restoring it.
func ReadSnapshot(path string) (*Snapshot, error) {
	content, err := readFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportFailed,
			fmt.Sprintf("Could not read the backup %s.", path), err)
	}

	var snapshot Snapshot
	if err := yaml.Unmarshal(content, &snapshot); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "The backup file is not a valid snapshot.", err)
	}

	// Verify manifest
	if snapshot.Manifest.Version != FormatVersion {
		return nil, apperrors.Newf(apperrors.ErrCorruptedArchive,
			"Unsupported backup version %q.", snapshot.Manifest.Version)
	}
	if snapshot.Manifest.Checksum == "" {
		return nil, apperrors.New(apperrors.ErrCorruptedArchive, "The backup manifest is missing its checksum.")
	}
	checksum, err := checksumOf(snapshot.SnapshotData)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "The backup file is not a valid snapshot.", err)
	}
	if checksum != snapshot.Manifest.Checksum {
		return nil, apperrors.New(apperrors.ErrCorruptedArchive,
			"The backup file was modified or damaged; its checksum does not match.")
	}
	if len(snapshot.Medications) != snapshot.Manifest.MedicationCount ||
		len(snapshot.IntakeRecords) != snapshot.Manifest.RecordCount {
		return nil, apperrors.New(apperrors.ErrCorruptedArchive,
			"The backup manifest counts do not match its contents.")
	}

	return &snapshot, nil
}

// checksumOf returns the hex SHA-256 of the YAML encoding of data.
func checksumOf(data SnapshotData) (string, error) {
	encoded, err := yaml.Marshal(&data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(encoded)), nil
}

func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// writeFile writes content to path via a temporary file and a rename.
func writeFile(path string, content []byte) (int64, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	outFile, err := os.Create(tempPath)
	if err != nil {
		return 0, err
	}
	defer os.Remove(tempPath)

	var writer io.Writer = outFile
	var gzw *gzip.Writer
	if compressed(path) {
		gzw = gzip.NewWriter(outFile)
		writer = gzw
	}

	if _, err := writer.Write(content); err != nil {
		outFile.Close()
		return 0, err
	}
	if gzw != nil {
		if err := gzw.Close(); err != nil {
			outFile.Close()
			return 0, err
		}
	}
	if err := outFile.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func readFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !compressed(path) {
		return content, nil
	}

	gzr, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer gzr.Close()
	return io.ReadAll(gzr)
}
