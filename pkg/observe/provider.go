package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ProviderConfig configures the OpenTelemetry SDK providers InitProvider
// installs as the global providers.
type ProviderConfig struct {
	// ServiceName defaults to "agentcore"; it is not attached to the
	// exported metrics as a resource attribute.
	ServiceName string
}

// InitProvider sets up a MeterProvider backed by a Prometheus exporter
// bridge (so the instrument set in Metrics can be scraped at the
// caller-served /metrics endpoint) and registers it as the global OTel
// MeterProvider. It returns a shutdown function to call from main's
// deferred cleanup.
//
// Trace export is deliberately not wired here: spec §1 places OTLP
// pipelines out of scope for this core, and this package defines metric
// instruments only, no spans.
func InitProvider(ctx context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agentcore"
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExp))
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		var errs []error
		if e := mp.Shutdown(ctx); e != nil {
			errs = append(errs, e)
		}
		return errors.Join(errs...)
	}, nil
}
