package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/pkg/ceres"
)

const (
	findCmdUse     = "find <root> <pattern>"
	findCmdShort   = "Glob-match node names within a tree"
	findArgCount   = 2
	findFromFlag   = "from"
	findFromUsage  = "only list nodes with data at or after this unix timestamp"
	findUntilFlag  = "until"
	findUntilUsage = "only list nodes with data before this unix timestamp"
)

// NewFindCommand creates the find subcommand.
func NewFindCommand() *cobra.Command {
	return buildFindCommand()
}

func buildFindCommand() *cobra.Command {
	var from, until int64

	cmd := &cobra.Command{
		Use:   findCmdUse,
		Short: findCmdShort,
		Args:  cobra.ExactArgs(findArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := ceres.OpenTree(args[0])
			if err != nil {
				return fmt.Errorf("open tree: %w", err)
			}

			nodes, err := tree.Find(args[1], from, until)
			if err != nil {
				return fmt.Errorf("find: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, node := range nodes {
				fmt.Fprintln(out, node.Name())
			}

			fmt.Fprintln(cmd.ErrOrStderr(), strconv.Itoa(len(nodes))+" node(s)")

			return nil
		},
	}

	cmd.Flags().Int64Var(&from, findFromFlag, 0, findFromUsage)
	cmd.Flags().Int64Var(&until, findUntilFlag, 0, findUntilUsage)

	return cmd
}
