package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/pkg/version"
)

const versionCmdUse = "version"

// NewVersionCommand creates the version subcommand.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   versionCmdUse,
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ceres %s (commit %s, built %s, format v%d)\n",
				version.Version, version.Commit, version.Date, version.Binary)

			return nil
		},
	}
}
