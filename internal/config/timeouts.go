package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the transport timing knobs.
// These values can be customized via environment variables.
type Timeouts struct {
	SSHDial       time.Duration // Timeout for establishing one SSH connection
	SSHMaxRetries int           // Maximum number of dial attempts per host
	SSHRetryDelay time.Duration // Initial delay between dial attempts
	Command       time.Duration // Upper bound for a single remote command
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - BORING_SSH_DIAL_TIMEOUT (default: 10s)
//   - BORING_SSH_MAX_RETRIES (default: 3)
//   - BORING_SSH_RETRY_DELAY (default: 2s)
//   - BORING_COMMAND_TIMEOUT (default: 10m)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		SSHDial:       parseDuration("BORING_SSH_DIAL_TIMEOUT", 10*time.Second),
		SSHMaxRetries: parseInt("BORING_SSH_MAX_RETRIES", 3),
		SSHRetryDelay: parseDuration("BORING_SSH_RETRY_DELAY", 2*time.Second),
		Command:       parseDuration("BORING_COMMAND_TIMEOUT", 10*time.Minute),
	}
}

// TestTimeouts returns short timeouts for tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		SSHDial:       50 * time.Millisecond,
		SSHMaxRetries: 1,
		SSHRetryDelay: 10 * time.Millisecond,
		Command:       time.Second,
	}
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
