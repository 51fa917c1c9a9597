package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/internal/observability"
	"github.com/ceres-project/ceres/pkg/ceres"
)

const (
	createNodeCmdUse      = "create-node <root> <name>"
	createNodeCmdShort    = "Create a metric node within a tree"
	createNodeArgCount    = 2
	createNodeStepFlag    = "step"
	createNodeStepUsage   = "time step in seconds for the node's base archive"
	createNodeRetainFlag  = "retention"
	createNodeRetainUsage = "retention archive as step:count (repeatable)"
)

// NewCreateNodeCommand creates the create-node subcommand.
func NewCreateNodeCommand() *cobra.Command {
	return buildCreateNodeCommand()
}

func buildCreateNodeCommand() *cobra.Command {
	var (
		step       int64
		retentions []string
	)

	cmd := &cobra.Command{
		Use:   createNodeCmdUse,
		Short: createNodeCmdShort,
		Args:  cobra.ExactArgs(createNodeArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := ceres.OpenTree(args[0])
			if err != nil {
				return fmt.Errorf("open tree: %w", err)
			}

			properties := map[string]any{}

			if step > 0 {
				properties["timeStep"] = step
			}

			if len(retentions) > 0 {
				parsed := make([]ceres.Retention, 0, len(retentions))

				for _, r := range retentions {
					retention, err := parseRetentionFlag(r)
					if err != nil {
						return err
					}

					parsed = append(parsed, retention)
				}

				properties["retentions"] = parsed
			}

			var node *ceres.Node

			createErr := recordOp(observability.OpSliceCreate, func() error {
				var createErr error
				node, createErr = tree.CreateNode(args[1], properties)

				return createErr
			})
			if createErr != nil {
				return fmt.Errorf("create node: %w", createErr)
			}

			printSuccess(cmd.OutOrStdout(), "created node %s at %s\n", node.Name(), node.FsPath())

			return nil
		},
	}

	cmd.Flags().Int64Var(&step, createNodeStepFlag, 0, createNodeStepUsage)
	cmd.Flags().StringArrayVar(&retentions, createNodeRetainFlag, nil, createNodeRetainUsage)

	return cmd
}
