package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/dosetrack/internal/db"
	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Show the database schema version, or roll back one version",
	Long: `Show the database schema version. Every command applies pending migrations
on its own, so this is mostly useful with --down to roll back the last one.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recent migration")
	rootCmd.AddCommand(migrateCmd)
}

type migrateStatus struct {
	Path       string         `json:"path"`
	Version    int            `json:"version"`
	Migrations []db.Migration `json:"migrations"`
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage,
			fmt.Sprintf("Could not open the database in %s.", cfg.DataDir), err)
	}
	defer database.Close()

	migrator := db.NewMigrator(database.DB, db.Migrations())
	if migrateDown {
		if err := migrator.Initialize(); err != nil {
			return apperrors.Wrap(apperrors.ErrMigration, "Could not read the schema version.", err)
		}
		if err := migrator.Down(); err != nil {
			return apperrors.Wrap(apperrors.ErrMigration, "Could not roll back the last migration.", err)
		}
	} else if _, err := migrator.Up(); err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "Could not upgrade the database schema.", err)
	}

	version, err := migrator.CurrentVersion()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "Could not read the schema version.", err)
	}
	applied, err := migrator.GetAppliedMigrations()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "Could not read the schema version.", err)
	}

	status := migrateStatus{Path: database.Path(), Version: version, Migrations: applied}
	return render(cmd, status, func(w io.Writer) error {
		fmt.Fprintf(w, "Database: %s\n", status.Path)
		fmt.Fprintf(w, "Schema version: %d\n", status.Version)
		for _, m := range applied {
			fmt.Fprintf(w, "  V%d %s (applied %s)\n", m.Version, m.Description, m.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
		}
		return nil
	})
}
