// Package commands implements the ceres CLI subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ceres-project/ceres/pkg/ceres"
)

// ErrInvalidDatapoint is returned when a write argument cannot be parsed as
// "<timestamp>:<value>".
var ErrInvalidDatapoint = errors.New("invalid datapoint, expected <timestamp>:<value>")

// ErrInvalidRetention is returned when a --retention flag cannot be parsed as
// "<step>:<count>".
var ErrInvalidRetention = errors.New("invalid retention, expected <step>:<count>")

// ErrInvalidProperty is returned when a --prop flag cannot be parsed as "<key>=<value>".
var ErrInvalidProperty = errors.New("invalid property, expected <key>=<value>")

func parseDatapointArg(arg string) (ceres.DataPoint, error) {
	ts, value, ok := strings.Cut(arg, ":")
	if !ok {
		return ceres.DataPoint{}, fmt.Errorf("%w: %q", ErrInvalidDatapoint, arg)
	}

	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ceres.DataPoint{}, fmt.Errorf("%w: %q", ErrInvalidDatapoint, arg)
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return ceres.DataPoint{}, fmt.Errorf("%w: %q", ErrInvalidDatapoint, arg)
	}

	return ceres.Point(timestamp, val), nil
}

func parseRetentionFlag(arg string) (ceres.Retention, error) {
	step, count, ok := strings.Cut(arg, ":")
	if !ok {
		return ceres.Retention{}, fmt.Errorf("%w: %q", ErrInvalidRetention, arg)
	}

	stepVal, err := strconv.Atoi(step)
	if err != nil || stepVal <= 0 {
		return ceres.Retention{}, fmt.Errorf("%w: %q", ErrInvalidRetention, arg)
	}

	countVal, err := strconv.Atoi(count)
	if err != nil || countVal <= 0 {
		return ceres.Retention{}, fmt.Errorf("%w: %q", ErrInvalidRetention, arg)
	}

	return ceres.Retention{Step: stepVal, Count: countVal}, nil
}

func parsePropertyFlag(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidProperty, arg)
	}

	return key, value, nil
}

func parsePropertiesFlags(args []string) (map[string]string, error) {
	props := make(map[string]string, len(args))

	for _, arg := range args {
		key, value, err := parsePropertyFlag(arg)
		if err != nil {
			return nil, err
		}

		props[key] = value
	}

	return props, nil
}

// printSuccess writes a green-on-success confirmation line, or plain text
// when stdout isn't a terminal (color.NoColor auto-detects this from stdout,
// whatever w is).
func printSuccess(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format, args...) //nolint:errcheck
}
