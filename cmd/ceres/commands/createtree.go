package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/pkg/ceres"
)

const (
	createTreeCmdUse     = "create-tree <root>"
	createTreeCmdShort   = "Create a new ceres tree at root"
	createTreeArgCount   = 1
	createTreePropsFlag  = "prop"
	createTreePropsUsage = "tree-level property as key=value (repeatable)"
)

// NewCreateTreeCommand creates the create-tree subcommand.
func NewCreateTreeCommand() *cobra.Command {
	return buildCreateTreeCommand()
}

func buildCreateTreeCommand() *cobra.Command {
	var props []string

	cmd := &cobra.Command{
		Use:   createTreeCmdUse,
		Short: createTreeCmdShort,
		Args:  cobra.ExactArgs(createTreeArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := parsePropertiesFlags(props)
			if err != nil {
				return err
			}

			tree, err := ceres.CreateTree(args[0], properties)
			if err != nil {
				return fmt.Errorf("create tree: %w", err)
			}

			printSuccess(cmd.OutOrStdout(), "created tree at %s\n", tree.Root())

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&props, createTreePropsFlag, nil, createTreePropsUsage)

	return cmd
}
