// Package telemetry wires OpenTelemetry metrics for the claim workflow.
//
// Metrics are off unless telemetry.enabled is set; then a stdout exporter
// prints them every telemetry.interval.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"claimflow/internal/errs"
)

const instrumentationScope = "claimflow"

type Config struct {
	Enabled     bool
	ServiceName string
	Interval    time.Duration
}

// Init installs the global meter provider and returns its shutdown func.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if !cfg.Enabled {
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return func(context.Context) error { return nil }, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = instrumentationScope
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	exp, err := stdoutmetric.New()
	if err != nil {
		return nil, errs.Wrap(err, "create stdout metric exporter")
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Meter returns a meter with the given instrumentation name (or the global scope).
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}
