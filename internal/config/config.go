package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// StorageConfig selects and configures the scenario persistence backend.
type StorageConfig struct {
	Type string `json:"type" mapstructure:"type"` // memory, filesystem, sqlite, postgres
	Dir  string `json:"dir" mapstructure:"dir"`   // filesystem backend
	Path string `json:"path" mapstructure:"path"` // sqlite backend
	DSN  string `json:"dsn" mapstructure:"dsn"`   // postgres backend
}

// GelfConfig holds the optional Graylog log sink settings.
type GelfConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string     `json:"level" mapstructure:"level"`
	File  string     `json:"file" mapstructure:"file"`
	Gelf  GelfConfig `json:"gelf" mapstructure:"gelf"`
}

// TelemetryConfig holds the optional InfluxDB edit-telemetry settings.
type TelemetryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Token   string `json:"token" mapstructure:"token"`
	Org     string `json:"org" mapstructure:"org"`
	Bucket  string `json:"bucket" mapstructure:"bucket"`
}

// Config is the root configuration.
type Config struct {
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Storage   StorageConfig   `json:"storage" mapstructure:"storage"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	UndoDepth int             `json:"undoDepth" mapstructure:"undoDepth"`
}

// Load reads configuration from orbat-mapper.cfg.json in configDir, applying
// defaults first. A missing config file is not an error; defaults apply.
func Load(configDir string) (Config, error) {
	v := viper.New()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.gelf.enabled", false)
	v.SetDefault("logging.gelf.address", "localhost:12201")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.dir", "./scenarios")
	v.SetDefault("storage.path", "./scenarios.db")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.url", "http://localhost:8086")
	v.SetDefault("telemetry.token", "")
	v.SetDefault("telemetry.org", "orbat")
	v.SetDefault("telemetry.bucket", "scenario_edits")

	v.SetDefault("undoDepth", 200)

	v.SetConfigName("orbat-mapper.cfg.json")
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return cfg, nil
}
