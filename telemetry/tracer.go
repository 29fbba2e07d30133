// package telemetry sets up OpenTelemetry tracing for the service
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/kava-labs/envelope-rewrite-service/logging"
)

const ServiceName = "envelope-rewrite-service"

// InitTracer installs a global tracer provider exporting spans as
// json to w, returning the function that flushes and stops it
func InitTracer(serviceName string, w io.Writer, logger *logging.ServiceLogger) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	logger.Info().Str("service", serviceName).Msg("OpenTelemetry initialized")

	return tp.Shutdown, nil
}
