package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the configuration file used when --config is not given.
	DefaultConfigPath = "config/services.yml"
	// DefaultEnvironment is the environment used when none is selected.
	DefaultEnvironment = "production"
)

// Settings are the process-level options that select and drive a run.
//
// Precedence (highest to lowest):
//  1. Command line flags
//  2. Environment variables
//  3. Default values
type Settings struct {
	ConfigPath  string `mapstructure:"config"`
	Environment string `mapstructure:"environment"`
	Parallel    int    `mapstructure:"parallel"`
	MetricsFile string `mapstructure:"metrics_file"`
	Verbosity   int    `mapstructure:"verbose"`
}

// LoadSettings resolves settings from flags, environment variables and
// defaults. flags may be nil.
func LoadSettings(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setSettingDefaults(v)

	// The first variable that is set wins.
	bindings := map[string][]string{
		"config":       {"BORING_SERVICES_CONFIG"},
		"environment":  {"BORING_SERVICES_ENV", "BORING_ENVIRONMENT", "RAILS_ENV"},
		"parallel":     {"BORING_SERVICES_PARALLEL"},
		"metrics_file": {"BORING_SERVICES_METRICS_FILE"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if flags != nil {
		for _, key := range []string{"config", "environment", "parallel", "metrics_file", "verbose"} {
			name := key
			if key == "metrics_file" {
				name = "metrics-file"
			}
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}

	if s.Parallel < 0 {
		return nil, fmt.Errorf("%w: parallel must not be negative, got %d", ErrInvalidConfig, s.Parallel)
	}

	return s, nil
}

func setSettingDefaults(v *viper.Viper) {
	v.SetDefault("config", DefaultConfigPath)
	v.SetDefault("environment", DefaultEnvironment)
	v.SetDefault("parallel", 0)
	v.SetDefault("metrics_file", "")
	v.SetDefault("verbose", 0)
}
