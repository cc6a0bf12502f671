// Package config loads DoseTrack settings from a config file and the
// environment.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DOSETRACK_LOGGING_LEVEL.
const EnvPrefix = "DOSETRACK"

// Config represents the complete DoseTrack configuration
type Config struct {
	DataDir  string         `json:"dataDir" yaml:"dataDir" mapstructure:"dataDir"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
	Advisory AdvisoryConfig `json:"advisory" yaml:"advisory" mapstructure:"advisory"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
}

// AdvisoryConfig contains weather advisory thresholds
type AdvisoryConfig struct {
	StaleAfterHours    float64 `json:"staleAfterHours" yaml:"staleAfterHours" mapstructure:"staleAfterHours"`
	HeatTemperature    float64 `json:"heatTemperature" yaml:"heatTemperature" mapstructure:"heatTemperature"`
	HighHumidity       float64 `json:"highHumidity" yaml:"highHumidity" mapstructure:"highHumidity"`
	ComfortTemperature float64 `json:"comfortTemperature" yaml:"comfortTemperature" mapstructure:"comfortTemperature"`
	ComfortHumidity    float64 `json:"comfortHumidity" yaml:"comfortHumidity" mapstructure:"comfortHumidity"`
}

// DefaultDataDir returns ~/.dosetrack, or .dosetrack when there is no home
// directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".dosetrack"
	}
	return filepath.Join(home, ".dosetrack")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Logging: LoggingConfig{
			Format: "text",
			Level:  "warn",
		},
		Advisory: AdvisoryConfig{
			StaleAfterHours:    24,
			HeatTemperature:    30,
			HighHumidity:       80,
			ComfortTemperature: 28,
			ComfortHumidity:    70,
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("dataDir", d.DataDir)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("advisory.staleAfterHours", d.Advisory.StaleAfterHours)
	v.SetDefault("advisory.heatTemperature", d.Advisory.HeatTemperature)
	v.SetDefault("advisory.highHumidity", d.Advisory.HighHumidity)
	v.SetDefault("advisory.comfortTemperature", d.Advisory.ComfortTemperature)
	v.SetDefault("advisory.comfortHumidity", d.Advisory.ComfortHumidity)

	// DOSETRACK_ADVISORY_HEATTEMPERATURE overrides advisory.heatTemperature
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads config.yaml, config.json or config.toml from dir. A missing
// file leaves the defaults in place. Environment overrides apply either way.
func LoadConfig(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return unmarshal(v)
}

// LoadConfigFile loads an explicit config file. Unlike LoadConfig, the file
// must exist.
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return &ConfigError{Field: "dataDir", Message: "must not be empty"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text", "human":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be json or text"}
	}
	if c.Advisory.StaleAfterHours <= 0 {
		return &ConfigError{Field: "advisory.staleAfterHours", Message: "must be positive"}
	}
	if c.Advisory.HighHumidity < 0 || c.Advisory.HighHumidity > 100 ||
		c.Advisory.ComfortHumidity < 0 || c.Advisory.ComfortHumidity > 100 {
		return &ConfigError{Field: "advisory", Message: "humidity thresholds must be between 0 and 100"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
