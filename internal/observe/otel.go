// Package observe provides the OpenTelemetry MeterProvider (OTLP gRPC
// exporter) and the ingest instruments.
package observe

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Meter holds the meter provider and its shutdown function.
type Meter struct {
	Provider *sdkmetric.MeterProvider
	Shutdown func(context.Context) error
}

// NewMeter creates a MeterProvider exporting via OTLP gRPC to the given endpoint.
// endpoint may be a URL with optional path (e.g. http://localhost:4317); only
// host:port is used for the gRPC dial. If empty, a no-op provider is returned
// and Shutdown is a no-op. https endpoints use TLS.
func NewMeter(ctx context.Context, endpoint, serviceName string) (*Meter, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return &Meter{
			Provider: sdkmetric.NewMeterProvider(),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(u.Host)}
	if u.Scheme != "https" {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(10*time.Second))),
	)
	otel.SetMeterProvider(provider)

	return &Meter{Provider: provider, Shutdown: provider.Shutdown}, nil
}
