package commands

import (
	"context"
	"time"

	"github.com/ceres-project/ceres/internal/observability"
)

// activeMetrics is nil unless the root command enabled --metrics-addr;
// recordOp is then a no-op, not a nil-check scattered across every command.
var activeMetrics *observability.REDMetrics

// SetMetrics wires RED instrumentation into every subcommand. Called once by
// main while it sets up the Prometheus scrape endpoint.
func SetMetrics(red *observability.REDMetrics) {
	activeMetrics = red
}

func recordOp(op string, fn func() error) error {
	if activeMetrics == nil {
		return fn()
	}

	done := activeMetrics.TrackInflight(context.Background(), op)
	defer done()

	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		status = "error"
	}

	activeMetrics.RecordRequest(context.Background(), op, status, time.Since(start))

	return err
}
