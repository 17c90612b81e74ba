package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/boringsvc/cmd/boringsvc/handlers"
)

// Status returns the command for displaying service health.
//
// Optional flags:
//
//	--json: Output in JSON format
func Status() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether each service is running",
		Long: `Ask systemd on every host whether each configured service is running.

Examples:
  # Show a table
  boringsvc status

  # Get results in JSON format
  boringsvc status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), cmd.Flags(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
