// Package export provides export/import service interfaces.
package export

import "context"

// ExportServiceInterface defines the contract for export services.
type ExportServiceInterface interface {
	// Export performs a data export with the given configuration.
	Export(ctx context.Context, config *ExportConfig) (*ExportResult, error)

	// Import restores a previously exported snapshot.
	Import(ctx context.Context, config *ImportConfig) (*ImportResult, error)
}

// Ensure *ExportService implements the interface at compile time.
var _ ExportServiceInterface = (*ExportService)(nil)
