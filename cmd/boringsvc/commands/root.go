// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/boringsvc/internal/config"
)

// Root returns the root command for the boringsvc CLI.
//
// Global flags are persistent so every subcommand accepts them. Each one can
// also be set through an environment variable; flags win.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "boringsvc",
		Short:         "Install and manage infrastructure services on remote hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", config.DefaultConfigPath, "Path to the services file (env: BORING_SERVICES_CONFIG)")
	flags.StringP("environment", "e", config.DefaultEnvironment, "Environment to operate on (env: BORING_SERVICES_ENV, BORING_ENVIRONMENT, RAILS_ENV)")
	flags.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	flags.Int("parallel", 0, "Visit up to N hosts of a service at once (env: BORING_SERVICES_PARALLEL)")
	flags.String("metrics-file", "", "Write prometheus metrics to this file after the run (env: BORING_SERVICES_METRICS_FILE)")

	// Service commands
	cmd.AddCommand(Setup())
	cmd.AddCommand(Install())
	cmd.AddCommand(Uninstall())
	cmd.AddCommand(Restart())
	cmd.AddCommand(Status())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
