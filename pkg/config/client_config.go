package config

import (
	"fmt"
	"os"
	"strconv"
)

// ProcessConfig is the small set of process-level knobs the teacher
// loads straight from the environment in LoadForClient: log level and
// reconnect policy, not connection identity (that lives in
// ConnectionProfile, loaded from TOML).
type ProcessConfig struct {
	LogLevel             string
	MaxReconnectAttempts int
}

// LoadProcessConfig mirrors the teacher's LoadForClient: env vars with
// defaults, parsed with strconv and returned as a plain struct.
func LoadProcessConfig() (*ProcessConfig, error) {
	logLevel, exists := os.LookupEnv("LOG_LEVEL")
	if !exists {
		logLevel = "info"
	}

	maxReconnectStr, exists := os.LookupEnv("MAX_RECONNECTION_ATTEMPTS")
	if !exists {
		maxReconnectStr = "100"
	}
	maxReconnect, err := strconv.Atoi(maxReconnectStr)
	if err != nil {
		return nil, fmt.Errorf("config: MAX_RECONNECTION_ATTEMPTS must be an integer: %w", err)
	}

	return &ProcessConfig{
		LogLevel:             logLevel,
		MaxReconnectAttempts: maxReconnect,
	}, nil
}
