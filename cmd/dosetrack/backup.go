package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/dosetrack/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write all medications and intake records to a backup file",
	Long: `Write all medications and intake records to a YAML backup file. A file name
ending in .gz is compressed.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a backup file written by export",
	Long: `Restore a backup file written by export. The file's checksum is verified
first. Medications and records that already exist are left as they are.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		result, err := export.NewExportService(a.store).Export(ctx, &export.ExportConfig{OutputPath: args[0]})
		if err != nil {
			return err
		}
		a.logger.Info("export finished", map[string]interface{}{
			"path":        result.FilePath,
			"bytes":       result.SizeBytes,
			"duration_ms": result.Duration.Milliseconds(),
		})
		return render(cmd, result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Exported %d medications and %d intake records to %s\n",
				result.MedicationCount, result.RecordCount, result.FilePath)
			return err
		})
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		result, err := export.NewExportService(a.store).Import(ctx, &export.ImportConfig{ArchivePath: args[0]})
		if err != nil {
			return err
		}
		return render(cmd, result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Imported %d medications and %d intake records (%d and %d already present)\n",
				result.ImportedMedications, result.ImportedRecords, result.SkippedMedications, result.SkippedRecords)
			return err
		})
	})
}
