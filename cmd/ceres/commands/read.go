package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ceres-project/ceres/internal/observability"
	"github.com/ceres-project/ceres/pkg/alg/stats"
	"github.com/ceres-project/ceres/pkg/ceres"
)

const (
	readCmdUse      = "read <root> <name> <from> <until>"
	readCmdShort    = "Read a time range from a node"
	readArgCount    = 4
	readFormatFlag  = "format"
	readFormatUsage = "output format: table, json, or yaml"
	readFormatTable = "table"
	readFormatJSON  = "json"
	readFormatYAML  = "yaml"
	readStatsFlag   = "stats"
	readStatsUsage  = "print mean/stddev/p50/p95 of the valid samples after rendering"
)

// ErrUnknownReadFormat is returned for an unrecognised --format value.
var ErrUnknownReadFormat = errors.New("unknown read format")

type readJSONRow struct {
	Timestamp int64    `json:"timestamp" yaml:"timestamp"`
	Value     *float64 `json:"value"     yaml:"value"`
}

// NewReadCommand creates the read subcommand.
func NewReadCommand() *cobra.Command {
	return buildReadCommand()
}

func buildReadCommand() *cobra.Command {
	var (
		format    string
		showStats bool
	)

	cmd := &cobra.Command{
		Use:   readCmdUse,
		Short: readCmdShort,
		Args:  cobra.ExactArgs(readArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var series *ceres.TimeSeriesData

			fetchErr := recordOp(observability.OpNodeRead, func() error {
				var fetchErr error
				series, fetchErr = tree.Fetch(args[1], from, until)

				return fetchErr
			})
			if fetchErr != nil {
				return fmt.Errorf("fetch: %w", fetchErr)
			}

			switch format {
			case "", readFormatTable:
				renderReadTable(cmd, series)
			case readFormatJSON:
				return renderReadJSON(cmd, series)
			case readFormatYAML:
				return renderReadYAML(cmd, series)
			default:
				return fmt.Errorf("%w: %q", ErrUnknownReadFormat, format)
			}

			if showStats {
				printReadStats(cmd, series)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, readFormatFlag, readFormatTable, readFormatUsage)
	cmd.Flags().BoolVar(&showStats, readStatsFlag, false, readStatsUsage)

	return cmd
}

func printReadStats(cmd *cobra.Command, series *ceres.TimeSeriesData) {
	values := make([]float64, 0, series.Len())

	for _, sample := range series.Values {
		if sample.Valid {
			values = append(values, sample.Value)
		}
	}

	if len(values) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "stats: no valid samples")

		return
	}

	mean, stddev := stats.MeanStdDev(values)
	p50 := stats.Percentile(values, stats.PercentileMedian)
	p95 := stats.Percentile(values, stats.PercentileP95)

	fmt.Fprintf(cmd.OutOrStdout(), "stats: mean=%g stddev=%g p50=%g p95=%g (n=%d)\n",
		mean, stddev, p50, p95, len(values))
}

func renderReadTable(cmd *cobra.Command, series *ceres.TimeSeriesData) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"timestamp", "time", "age", "value"})

	timestamp := series.StartTime
	for _, sample := range series.Values {
		value := "null"
		if sample.Valid {
			value = strconv.FormatFloat(sample.Value, 'g', -1, 64)
		}

		at := time.Unix(timestamp, 0)
		tbl.AppendRow(table.Row{timestamp, at.UTC().Format(time.RFC3339), humanize.Time(at), value})
		timestamp += series.TimeStep
	}

	tbl.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d point(s), step=%ds", series.Len(), series.TimeStep)})
	tbl.Render()
}

func renderReadJSON(cmd *cobra.Command, series *ceres.TimeSeriesData) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")

	return encoder.Encode(seriesRows(series))
}

func renderReadYAML(cmd *cobra.Command, series *ceres.TimeSeriesData) error {
	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	defer encoder.Close()

	return encoder.Encode(seriesRows(series))
}

func seriesRows(series *ceres.TimeSeriesData) []readJSONRow {
	rows := make([]readJSONRow, 0, series.Len())

	timestamp := series.StartTime
	for _, sample := range series.Values {
		row := readJSONRow{Timestamp: timestamp}
		if sample.Valid {
			value := sample.Value
			row.Value = &value
		}

		rows = append(rows, row)
		timestamp += series.TimeStep
	}

	return rows
}
