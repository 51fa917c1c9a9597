package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/pkg/ceres"
)

const (
	renderCmdUse      = "render <root> <name> <from> <until>"
	renderCmdShort    = "Render a time range as an HTML line chart"
	renderArgCount    = 4
	renderOutputFlag  = "output"
	renderOutputShort = "o"
	renderOutputUsage = "output HTML file path"
	renderLineWidth   = 2
	renderChartWidth  = "100%"
	renderChartHeight = "500px"
	renderOutputPerm  = 0o644
)

// ErrRenderNoOutput is returned when the --output flag is not set.
var ErrRenderNoOutput = errors.New("output path is required (use --output)")

// NewRenderCommand creates the render subcommand.
func NewRenderCommand() *cobra.Command {
	return buildRenderCommand()
}

func buildRenderCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   renderCmdUse,
		Short: renderCmdShort,
		Args:  cobra.ExactArgs(renderArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return ErrRenderNoOutput
			}

			tree, err := ceres.OpenTree(args[0])
			if err != nil {
				return fmt.Errorf("open tree: %w", err)
			}

			from, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("parse from: %w", err)
			}

			until, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("parse until: %w", err)
			}

			series, err := tree.Fetch(args[1], from, until)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}

			line := buildSeriesChart(args[1], series)

			file, err := os.OpenFile(output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, renderOutputPerm)
			if err != nil {
				return fmt.Errorf("open output: %w", err)
			}
			defer file.Close()

			if err := line.Render(file); err != nil {
				return fmt.Errorf("render chart: %w", err)
			}

			printSuccess(cmd.OutOrStdout(), "rendered %s to %s\n", args[1], output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, renderOutputFlag, renderOutputShort, "", renderOutputUsage)

	return cmd
}

func buildSeriesChart(name string, series *ceres.TimeSeriesData) *charts.Line {
	labels := make([]string, series.Len())
	data := make([]opts.LineData, series.Len())

	timestamp := series.StartTime

	for i, sample := range series.Values {
		labels[i] = time.Unix(timestamp, 0).UTC().Format(time.RFC3339)

		if sample.Valid {
			data[i] = opts.LineData{Value: sample.Value}
		} else {
			data[i] = opts.LineData{Value: nil}
		}

		timestamp += series.TimeStep
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: renderChartWidth, Height: renderChartHeight}),
		charts.WithTitleOpts(opts.Title{Title: name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value"}),
	)
	line.SetXAxis(labels)
	line.AddSeries(name, data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: renderLineWidth}),
	)

	return line
}
