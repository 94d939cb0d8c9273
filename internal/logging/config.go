package logging

import (
	"fmt"
)

// Config holds logging-related configuration
type Config struct {
	Level      string // debug, info, warn, error
	File       string // Path to log file, empty logs to stdout only
	MaxSize    int    // Max size in MB
	MaxBackups int    // Number of backups to keep
	MaxAge     int    // Max age in days
}

// Validate checks if the configuration is valid
func (l *Config) Validate() error {
	if _, ok := levelRank[l.Level]; !ok {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.File == "" {
		return nil
	}

	if l.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}

	if l.MaxBackups < 0 {
		return fmt.Errorf("max_backups must be non-negative")
	}

	if l.MaxAge < 0 {
		return fmt.Errorf("max_age must be non-negative")
	}

	return nil
}
