package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// Record store
	DBPath      string
	SnapshotTTL time.Duration

	// Form defaults cache
	PrefsPath string

	// Calendar zone used for day, week, month and year boundaries
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		DBPath:      getEnv("COFFEE_DB_PATH", "./data/coffee.db"),
		SnapshotTTL: getEnvDuration("COFFEE_SNAPSHOT_TTL", 30*time.Second),

		PrefsPath: getEnv("COFFEE_PREFS_PATH", "./data/prefs.yaml"),

		Timezone: getEnv("COFFEE_TIMEZONE", "Local"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("database directory '%s' is not a directory", dir))
		}
	}

	if c.PrefsPath == "" {
		errors = append(errors, "prefs path cannot be empty")
	} else if c.PrefsPath == c.DBPath {
		errors = append(errors, "prefs path must differ from the database path")
	}

	if c.SnapshotTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid snapshot ttl %v: must not be negative", c.SnapshotTTL))
	} else if c.SnapshotTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid snapshot ttl %v: must be at most 1 hour", c.SnapshotTTL))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	validFormats := []string{"text", "json"}
	isValidFormat := false
	for _, f := range validFormats {
		if c.LogFormat == f {
			isValidFormat = true
			break
		}
	}
	if !isValidFormat {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location returns the configured calendar zone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
