package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables overriding probe and exec settings.
const (
	EnvProbeAttempts = "PROXYSYNC_PROBE_ATTEMPTS"
	EnvProbeInterval = "PROXYSYNC_PROBE_INTERVAL"
	EnvProbeTimeout  = "PROXYSYNC_PROBE_TIMEOUT"
	EnvExecTimeout   = "PROXYSYNC_EXEC_TIMEOUT"
	EnvExecRetries   = "PROXYSYNC_EXEC_RETRIES"
)

// ApplyEnv overrides probe and exec settings from environment variables.
// If an environment variable is not set or invalid, the current value is kept.
//
// Environment Variables:
//   - PROXYSYNC_PROBE_ATTEMPTS (default: 10)
//   - PROXYSYNC_PROBE_INTERVAL (default: 1s)
//   - PROXYSYNC_PROBE_TIMEOUT (default: 1s)
//   - PROXYSYNC_EXEC_TIMEOUT (default: 30s)
//   - PROXYSYNC_EXEC_RETRIES (default: 3)
func (c *Config) ApplyEnv() {
	c.Probe.Attempts = parseInt(EnvProbeAttempts, c.Probe.Attempts)
	c.Probe.Interval = parseDuration(EnvProbeInterval, c.Probe.Interval)
	c.Probe.Timeout = parseDuration(EnvProbeTimeout, c.Probe.Timeout)
	c.Exec.Timeout = parseDuration(EnvExecTimeout, c.Exec.Timeout)
	c.Exec.Retries = parseInt(EnvExecRetries, c.Exec.Retries)
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
