package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusHandler creates a Prometheus metrics exporter backed by an OTel
// MeterProvider and returns an [http.Handler] that serves the /metrics scrape
// endpoint. Each call creates an independent Prometheus registry to avoid
// collector conflicts when called multiple times.
func PrometheusHandler() (http.Handler, error) {
	_, handler, err := NewPrometheusMetrics(defaultServiceName)

	return handler, err
}

// NewPrometheusMetrics wires a Prometheus-backed OTel MeterProvider to a set
// of RED instruments and returns both the instruments and the /metrics
// scrape handler. Callers record request metrics through the returned
// *REDMetrics; the handler is mounted directly on an http.ServeMux.
func NewPrometheusMetrics(meterName string) (*REDMetrics, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	red, err := NewREDMetrics(provider.Meter(meterName))
	if err != nil {
		return nil, nil, fmt.Errorf("create RED instruments: %w", err)
	}

	return red, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
