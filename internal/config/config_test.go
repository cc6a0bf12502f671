package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Advisory.StaleAfterHours != 24 {
		t.Errorf("Advisory.StaleAfterHours = %v, want 24", cfg.Advisory.StaleAfterHours)
	}
	if cfg.Advisory.HeatTemperature != 30 || cfg.Advisory.HighHumidity != 80 {
		t.Errorf("advisory thresholds = %v/%v, want 30/80", cfg.Advisory.HeatTemperature, cfg.Advisory.HighHumidity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Advisory.ComfortHumidity != 70 {
		t.Errorf("Advisory.ComfortHumidity = %v, want 70 (default)", cfg.Advisory.ComfortHumidity)
	}
	if cfg.DataDir != DefaultDataDir() {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, DefaultDataDir())
	}
}

func TestLoadConfig_FromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	content := `dataDir: /var/lib/dosetrack
logging:
  level: debug
  format: json
advisory:
  heatTemperature: 32.5
`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DataDir != "/var/lib/dosetrack" {
		t.Errorf("DataDir = %q, want /var/lib/dosetrack", cfg.DataDir)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if cfg.Advisory.HeatTemperature != 32.5 {
		t.Errorf("Advisory.HeatTemperature = %v, want 32.5", cfg.Advisory.HeatTemperature)
	}
	// Unset keys keep their defaults.
	if cfg.Advisory.HighHumidity != 80 {
		t.Errorf("Advisory.HighHumidity = %v, want 80", cfg.Advisory.HighHumidity)
	}
}

func TestLoadConfig_FromJSON(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"advisory": {"staleAfterHours": 6}}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Advisory.StaleAfterHours != 6 {
		t.Errorf("Advisory.StaleAfterHours = %v, want 6", cfg.Advisory.StaleAfterHours)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DOSETRACK_LOGGING_LEVEL", "error")
	t.Setenv("DOSETRACK_ADVISORY_HIGHHUMIDITY", "85")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error from env", cfg.Logging.Level)
	}
	if cfg.Advisory.HighHumidity != 85 {
		t.Errorf("Advisory.HighHumidity = %v, want 85 from env", cfg.Advisory.HighHumidity)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(tmpDir); err == nil {
		t.Error("LoadConfig() with invalid JSON should return error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dosetrack.toml")
	content := "dataDir = \"/tmp/dt\"\n\n[logging]\nlevel = \"info\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if cfg.DataDir != "/tmp/dt" || cfg.Logging.Level != "info" {
		t.Errorf("LoadConfigFile() = %+v", cfg)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfigFile() with a missing file should return error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty data dir", func(c *Config) { c.DataDir = " " }, "dataDir"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero stale hours", func(c *Config) { c.Advisory.StaleAfterHours = 0 }, "advisory.staleAfterHours"},
		{"humidity over 100", func(c *Config) { c.Advisory.HighHumidity = 120 }, "advisory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "dataDir", Message: "must not be empty"}
	want := "config error in field 'dataDir': must not be empty"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
