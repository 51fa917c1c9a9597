package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/pkg/ceres"
)

const (
	treeInfoCmdUse   = "tree-info <root>"
	treeInfoCmdShort = "Summarise a tree's nodes and slice layout"
	treeInfoArgCount = 1
)

// NewTreeInfoCommand creates the tree-info subcommand.
func NewTreeInfoCommand() *cobra.Command {
	return buildTreeInfoCommand()
}

func buildTreeInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   treeInfoCmdUse,
		Short: treeInfoCmdShort,
		Args:  cobra.ExactArgs(treeInfoArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := ceres.OpenTree(args[0])
			if err != nil {
				return fmt.Errorf("open tree: %w", err)
			}

			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"node", "time step", "slices", "start", "end"})

			var nodeCount int

			walkErr := tree.Walk(func(node *ceres.Node) error {
				nodeCount++

				meta, err := node.ReadMetadata()
				if err != nil {
					return err
				}

				slices, err := node.SliceInfo()
				if err != nil {
					return err
				}

				var start, end int64

				if len(slices) > 0 {
					start = slices[len(slices)-1].StartTime
					end = slices[0].EndTime
				}

				tbl.AppendRow(table.Row{node.Name(), meta.TimeStep, len(slices), start, end})

				return nil
			})
			if walkErr != nil {
				return fmt.Errorf("walk tree: %w", walkErr)
			}

			tbl.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d node(s)", nodeCount)})
			tbl.Render()

			return nil
		},
	}

	return cmd
}
