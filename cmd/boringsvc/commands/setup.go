package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/boringsvc/cmd/boringsvc/handlers"
)

// Setup returns the command installing every enabled service.
func Setup() *cobra.Command {
	return &cobra.Command{
		Use:     "setup",
		Aliases: []string{"install-all"},
		Short:   "Install all enabled services",
		Long: `Install every enabled service of the selected environment, in the
order they appear in the services file.

A service that fails does not stop the ones after it; the command exits
non-zero if any service failed.

Example:
  boringsvc setup -e staging`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Setup(cmd.Context(), cmd.Flags())
		},
	}
}
