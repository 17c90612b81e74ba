package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSettingsEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"BORING_SERVICES_CONFIG", "BORING_SERVICES_ENV", "BORING_ENVIRONMENT",
		"RAILS_ENV", "BORING_SERVICES_PARALLEL", "BORING_SERVICES_METRICS_FILE",
	} {
		t.Setenv(name, "")
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("config", "c", DefaultConfigPath, "")
	fs.StringP("environment", "e", DefaultEnvironment, "")
	fs.Int("parallel", 0, "")
	fs.String("metrics-file", "", "")
	fs.CountP("verbose", "v", "")
	return fs
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearSettingsEnv(t)

	s, err := LoadSettings(nil)
	require.NoError(t, err)

	assert.Equal(t, "config/services.yml", s.ConfigPath)
	assert.Equal(t, "production", s.Environment)
	assert.Equal(t, 0, s.Parallel)
	assert.Empty(t, s.MetricsFile)
}

func TestLoadSettings_EnvFallbackOrder(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("RAILS_ENV", "staging")

	s, err := LoadSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, "staging", s.Environment)

	t.Setenv("BORING_SERVICES_ENV", "qa")
	s, err = LoadSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, "qa", s.Environment)
}

func TestLoadSettings_EnvVars(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("BORING_SERVICES_CONFIG", "/etc/boring/services.yml")
	t.Setenv("BORING_SERVICES_PARALLEL", "4")
	t.Setenv("BORING_SERVICES_METRICS_FILE", "/var/lib/node_exporter/boring.prom")

	s, err := LoadSettings(nil)
	require.NoError(t, err)

	assert.Equal(t, "/etc/boring/services.yml", s.ConfigPath)
	assert.Equal(t, 4, s.Parallel)
	assert.Equal(t, "/var/lib/node_exporter/boring.prom", s.MetricsFile)
}

func TestLoadSettings_FlagsOverrideEnv(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("BORING_SERVICES_ENV", "qa")

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-e", "staging", "--parallel", "2", "-vv"}))

	s, err := LoadSettings(fs)
	require.NoError(t, err)

	assert.Equal(t, "staging", s.Environment)
	assert.Equal(t, 2, s.Parallel)
	assert.Equal(t, 2, s.Verbosity)
}

func TestLoadSettings_NegativeParallel(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("BORING_SERVICES_PARALLEL", "-1")

	_, err := LoadSettings(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
