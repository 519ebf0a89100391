package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig contains server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// StorageConfig locates the upload directory and the text store file
type StorageConfig struct {
	Dir      string `mapstructure:"dir"`
	TextFile string `mapstructure:"text_file"`
}

// TelemetryConfig contains telemetry configuration
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	cfg := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal configuration
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Post-process configuration
	if err := postProcess(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.max_body_bytes", int64(500*1024*1024))

	// Storage defaults
	viper.SetDefault("storage.dir", "uploads")
	viper.SetDefault("storage.text_file", "texts.json")

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)

	// Environment variable mappings
	viper.BindEnv("storage.dir", "LANSHARE_DIR")
	viper.BindEnv("storage.text_file", "LANSHARE_TEXT_FILE")
	viper.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func postProcess(cfg *Config) error {
	// Resolve storage paths to absolute so later chdirs cannot move the stores
	if !filepath.IsAbs(cfg.Storage.Dir) {
		abs, err := filepath.Abs(cfg.Storage.Dir)
		if err != nil {
			return err
		}
		cfg.Storage.Dir = abs
	}

	if !filepath.IsAbs(cfg.Storage.TextFile) {
		abs, err := filepath.Abs(cfg.Storage.TextFile)
		if err != nil {
			return err
		}
		cfg.Storage.TextFile = abs
	}

	return nil
}
