package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// textfileExporter bridges OTel instruments into a private Prometheus
// registry and dumps it to a file in the text exposition format.
type textfileExporter struct {
	path     string
	registry *prometheus.Registry
	reader   sdkmetric.Reader
}

func newTextfileExporter(path string) (*textfileExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &textfileExporter{
		path:     path,
		registry: registry,
		reader:   exporter,
	}, nil
}

// write renders the registry to the configured path. The file is written
// atomically by the Prometheus client.
func (te *textfileExporter) write() error {
	err := prometheus.WriteToTextfile(te.path, te.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", te.path, err)
	}

	return nil
}
