package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const instrumentationName = "inventory-service"

// inventoryMetrics agrupa os contadores do serviço
type inventoryMetrics struct {
	productsCreated metric.Int64Counter
	productsUpdated metric.Int64Counter
	productsDeleted metric.Int64Counter
	logins          metric.Int64Counter
}

// newInventoryMetrics registra os contadores no meter informado
func newInventoryMetrics(meter metric.Meter) (*inventoryMetrics, error) {
	created, err := meter.Int64Counter("inventory.products.created",
		metric.WithDescription("Number of products created"))
	if err != nil {
		return nil, err
	}
	updated, err := meter.Int64Counter("inventory.products.updated",
		metric.WithDescription("Number of quantity and price updates"))
	if err != nil {
		return nil, err
	}
	deleted, err := meter.Int64Counter("inventory.products.deleted",
		metric.WithDescription("Number of products deleted"))
	if err != nil {
		return nil, err
	}
	logins, err := meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by result"))
	if err != nil {
		return nil, err
	}

	return &inventoryMetrics{
		productsCreated: created,
		productsUpdated: updated,
		productsDeleted: deleted,
		logins:          logins,
	}, nil
}

// defaultMetrics usa o MeterProvider global, que é no-op quando nada foi configurado
func defaultMetrics() *inventoryMetrics {
	m, err := newInventoryMetrics(otel.Meter(instrumentationName))
	if err != nil {
		panic(err)
	}
	return m
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
}

func initTracer(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMetrics(ctx context.Context, endpoint, serviceName string) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}
