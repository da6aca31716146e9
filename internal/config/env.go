package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvServerAddress  = "ALERT_HUB_SERVER_ADDR"
	EnvMetricsAddress = "ALERT_HUB_METRICS_ADDR"
	EnvLogLevel       = "ALERT_HUB_LOG_LEVEL"
	EnvTimeout        = "ALERT_HUB_TIMEOUT"
)

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	return nil
}

// applyEnv overrides cfg with ALERT_HUB_* variables.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvServerAddress); ok && v != "" {
		cfg.ServerAddress = v
	}

	if v, ok := os.LookupEnv(EnvMetricsAddress); ok {
		cfg.MetricsAddress = v
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}

	if v, ok := os.LookupEnv(EnvTimeout); ok && v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}

		cfg.Timeout = timeout
	}

	return nil
}
