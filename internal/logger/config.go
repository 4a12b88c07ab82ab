package logger

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration.
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// fileConfig is the wrapper shape of the logging section in the server's
// YAML config file.
type fileConfig struct {
	Logging Config `yaml:"logging"`
}

// DefaultConfig returns console-only text logging at INFO.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FilePath:       "logs/gitforged.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig reads the logging section of a YAML config file and applies
// environment overrides. A missing or unreadable file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var wrapper fileConfig
			if err := yaml.Unmarshal(data, &wrapper); err == nil {
				merge(&cfg, wrapper.Logging)
			}
		}
	}

	if v := os.Getenv("GITFORGED_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("GITFORGED_LOG_FORMAT"); v != "" {
		cfg.ConsoleFormat = v
		cfg.FileFormat = v
	}
	if v := os.Getenv("GITFORGED_LOG_FILE"); v != "" {
		cfg.FileEnabled = true
		cfg.FilePath = v
	}
	if v := os.Getenv("GITFORGED_LOG_CONSOLE"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.ConsoleEnabled = enabled
		}
	}
	return cfg, nil
}

// merge overlays non-zero values from loaded onto cfg. The enable flags are
// taken as-is so a config file can turn outputs off.
func merge(cfg *Config, loaded Config) {
	cfg.ConsoleEnabled = loaded.ConsoleEnabled
	cfg.FileEnabled = loaded.FileEnabled
	if loaded.Level != "" {
		cfg.Level = loaded.Level
	}
	if loaded.ConsoleFormat != "" {
		cfg.ConsoleFormat = loaded.ConsoleFormat
	}
	if loaded.FilePath != "" {
		cfg.FilePath = loaded.FilePath
	}
	if loaded.FileFormat != "" {
		cfg.FileFormat = loaded.FileFormat
	}
	if loaded.FileMaxSizeMB > 0 {
		cfg.FileMaxSizeMB = loaded.FileMaxSizeMB
	}
	if loaded.FileMaxBackups > 0 {
		cfg.FileMaxBackups = loaded.FileMaxBackups
	}
	if loaded.FileMaxAgeDays > 0 {
		cfg.FileMaxAgeDays = loaded.FileMaxAgeDays
	}
}
