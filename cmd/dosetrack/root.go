package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/dosetrack/internal/advisory"
	"github.com/kimhsiao/dosetrack/internal/config"
	"github.com/kimhsiao/dosetrack/internal/db"
	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
	"github.com/kimhsiao/dosetrack/internal/logging"
)

var (
	dataDirFlag  string
	configFlag   string
	logLevelFlag string
	formatFlag   string
)

// now is the wall clock. Tests replace it.
var now = time.Now

var rootCmd = &cobra.Command{
	Use:   "dosetrack",
	Short: "DoseTrack - medication schedules and intake tracking",
	Long: `DoseTrack keeps medication definitions and intake records in a local database,
expands them into daily schedules and reports adherence over time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"Directory holding dosetrack.db and config.yaml (default: ~/.dosetrack)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Explicit config file (default: config.yaml in the data directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "text", "Output format (text, json)")
}

// app holds what a command needs once the data directory is open.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	database *db.DB
	store    *db.Store
}

// loadConfig resolves the configuration. Precedence: flags > environment >
// config file > defaults.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFlag != "" {
		cfg, err = config.LoadConfigFile(configFlag)
	} else {
		dir := dataDirFlag
		if dir == "" {
			dir = config.DefaultDataDir()
		}
		cfg, err = config.LoadConfig(dir)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfig, "Could not read the configuration file.", err)
	}

	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfig, err.Error(), err)
	}
	return cfg, nil
}

// openApp loads the configuration, opens and migrates the database and
// returns the wired app. The caller must close it.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage,
			fmt.Sprintf("Could not open the database in %s.", cfg.DataDir), err)
	}

	applied, err := db.NewMigrator(database.DB, db.Migrations()).Up()
	if err != nil {
		database.Close()
		return nil, apperrors.Wrap(apperrors.ErrMigration, "Could not upgrade the database schema.", err)
	}
	if applied > 0 {
		logger.Info("database migrated", map[string]interface{}{"applied": applied, "path": database.Path()})
	}

	store := db.NewStore(database.DB, db.WithClock(now), db.WithLogger(logger))
	return &app{cfg: cfg, logger: logger, database: database, store: store}, nil
}

func (a *app) Close() error {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close prepared statements", map[string]interface{}{"error": err.Error()})
	}
	return a.database.Close()
}

// thresholdsOf converts the advisory config.
func thresholdsOf(cfg *config.Config) advisory.Thresholds {
	return advisory.Thresholds{
		HeatTemperature:    cfg.Advisory.HeatTemperature,
		HighHumidity:       cfg.Advisory.HighHumidity,
		ComfortTemperature: cfg.Advisory.ComfortTemperature,
		ComfortHumidity:    cfg.Advisory.ComfortHumidity,
	}
}

// withApp runs fn against an open app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

func invalidInput(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.ErrInvalid, format, args...)
}
