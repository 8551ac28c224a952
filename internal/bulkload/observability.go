package bulkload

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/oteladapters"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/promadapters"
)

const (
	serviceName            = "bulkload"
	instrumentationName    = "github.com/AntonStoeckl/bulkwrite-go"
	metricExportInterval   = 5 * time.Second
	shutdownTimeout        = 5 * time.Second
	metricsReadHeaderLimit = 5 * time.Second
)

// Observability holds the metrics and tracing backends of one run.
type Observability struct {
	MetricsCollector bulkwrite.MetricsCollector
	TracingCollector bulkwrite.TracingCollector

	metricsServer  *http.Server
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewObservability sets up a Prometheus /metrics endpoint if metricsAddr is set and OTLP gRPC
// trace and metric export if otlpEndpoint is set. With both, metrics go to both backends.
func NewObservability(ctx context.Context, metricsAddr, otlpEndpoint string) (*Observability, error) {
	o := &Observability{}
	fanout := multiMetricsCollector{}

	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		listener, err := net.Listen("tcp", metricsAddr)
		if err != nil {
			return nil, err
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		o.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadHeaderLimit}

		go func() { _ = o.metricsServer.Serve(listener) }()

		fanout = append(fanout, promadapters.NewMetricsCollector(registry))
	}

	if otlpEndpoint != "" {
		if err := o.setupOTLP(ctx, otlpEndpoint); err != nil {
			return nil, errors.Join(err, o.Shutdown())
		}

		fanout = append(fanout, oteladapters.NewMetricsCollector(o.meterProvider.Meter(instrumentationName)))
		o.TracingCollector = oteladapters.NewTracingCollector(o.tracerProvider.Tracer(instrumentationName))
	}

	switch {
	case len(fanout) == 1:
		o.MetricsCollector = fanout[0]
	case len(fanout) > 1:
		o.MetricsCollector = fanout
	}

	return o, nil
}

func (o *Observability) setupOTLP(ctx context.Context, endpoint string) error {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return err
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return err
	}

	o.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter), sdktrace.WithResource(res))

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return err
	}

	o.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricExportInterval))),
		sdkmetric.WithResource(res),
	)

	return nil
}

// ExecutorOptions returns the executor options for the configured backends.
func (o *Observability) ExecutorOptions() []asyncexecutor.Option {
	var options []asyncexecutor.Option

	if o.MetricsCollector != nil {
		options = append(options, asyncexecutor.WithMetrics(o.MetricsCollector))
	}

	if o.TracingCollector != nil {
		options = append(options, asyncexecutor.WithTracing(o.TracingCollector))
	}

	return options
}

// Shutdown flushes pending telemetry and stops the metrics endpoint.
func (o *Observability) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	if o.tracerProvider != nil {
		err = errors.Join(err, o.tracerProvider.Shutdown(ctx))
	}

	if o.meterProvider != nil {
		err = errors.Join(err, o.meterProvider.Shutdown(ctx))
	}

	if o.metricsServer != nil {
		err = errors.Join(err, o.metricsServer.Shutdown(ctx))
	}

	return err
}

// multiMetricsCollector fans every measurement out to several collectors.
type multiMetricsCollector []bulkwrite.MetricsCollector

func (m multiMetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	for _, collector := range m {
		collector.RecordDuration(metric, duration, labels)
	}
}

func (m multiMetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	for _, collector := range m {
		collector.IncrementCounter(metric, labels)
	}
}

func (m multiMetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	for _, collector := range m {
		collector.RecordValue(metric, value, labels)
	}
}
