// Package observability provides OpenTelemetry-based metrics and
// structured logging for the ceres CLI and any long-running tree server
// built on top of pkg/ceres.
package observability

import "log/slog"

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "ceres"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration. It is deliberately smaller
// than a full OTLP-exporting setup: this binary only ever exports metrics
// via a local Prometheus scrape endpoint (see PrometheusHandler), so there
// is no collector endpoint, headers, or sampling ratio to configure.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "staging", "dev").
	Environment string

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// MetricsAddr is the address for the Prometheus scrape endpoint. This
	// package does not start a server from it.
	MetricsAddr string

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
