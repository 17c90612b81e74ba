package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/boringsvc/cmd/boringsvc/handlers"
)

// Install returns the install command.
//
// Without an argument it behaves like setup.
func Install() *cobra.Command {
	return &cobra.Command{
		Use:   "install [SERVICE]",
		Short: "Install one service, or all enabled services",
		Long: `Install a service on all of its hosts: install the package, write its
configuration, then enable and start the systemd unit.

Examples:
  # Install redis
  boringsvc install redis

  # Install everything
  boringsvc install`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return handlers.Setup(cmd.Context(), cmd.Flags())
			}
			return handlers.Install(cmd.Context(), cmd.Flags(), args[0])
		},
	}
}

// Uninstall returns the uninstall command.
func Uninstall() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall SERVICE",
		Short: "Stop and remove a service",
		Long: `Stop and disable the service's systemd unit on all of its hosts, then
remove its package.

Example:
  boringsvc uninstall memcached`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Uninstall(cmd.Context(), cmd.Flags(), args[0])
		},
	}
}

// Restart returns the restart command.
func Restart() *cobra.Command {
	return &cobra.Command{
		Use:   "restart SERVICE",
		Short: "Restart a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Restart(cmd.Context(), cmd.Flags(), args[0])
		},
	}
}
