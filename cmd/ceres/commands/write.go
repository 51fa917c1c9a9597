package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/internal/observability"
	"github.com/ceres-project/ceres/pkg/ceres"
)

const (
	writeCmdUse   = "write <root> <name> <timestamp:value>..."
	writeCmdShort = "Append datapoints to a node"
	writeMinArgs  = 3
)

// NewWriteCommand creates the write subcommand.
func NewWriteCommand() *cobra.Command {
	return buildWriteCommand()
}

func buildWriteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   writeCmdUse,
		Short: writeCmdShort,
		Args:  cobra.MinimumNArgs(writeMinArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := ceres.OpenTree(args[0])
			if err != nil {
				return fmt.Errorf("open tree: %w", err)
			}

			node, err := tree.GetNode(args[1])
			if err != nil {
				return fmt.Errorf("get node: %w", err)
			}

			datapoints := make([]ceres.DataPoint, 0, len(args)-2)

			for _, arg := range args[2:] {
				point, err := parseDatapointArg(arg)
				if err != nil {
					return err
				}

				datapoints = append(datapoints, point)
			}

			writeErr := recordOp(observability.OpNodeWrite, func() error {
				return node.Write(datapoints)
			})
			if writeErr != nil {
				return fmt.Errorf("write: %w", writeErr)
			}

			printSuccess(cmd.OutOrStdout(), "wrote %d point(s) to %s\n", len(datapoints), node.Name())

			return nil
		},
	}

	return cmd
}
