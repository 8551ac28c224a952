package helper

import (
	"context"
	"log/slog"
	"time"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// PanickingMetricsCollector is a MetricsCollector whose every method panics.
type PanickingMetricsCollector struct{}

// RecordDuration implements the MetricsCollector interface.
func (PanickingMetricsCollector) RecordDuration(metric string, _ time.Duration, _ map[string]string) {
	panic("metrics collector failed for: " + metric)
}

// IncrementCounter implements the MetricsCollector interface.
func (PanickingMetricsCollector) IncrementCounter(metric string, _ map[string]string) {
	panic("metrics collector failed for: " + metric)
}

// RecordValue implements the MetricsCollector interface.
func (PanickingMetricsCollector) RecordValue(metric string, _ float64, _ map[string]string) {
	panic("metrics collector failed for: " + metric)
}

// PanickingTracingCollector is a TracingCollector whose every method panics.
type PanickingTracingCollector struct{}

// StartSpan implements the TracingCollector interface.
func (PanickingTracingCollector) StartSpan(_ context.Context, name string, _ map[string]string) (context.Context, bulkwrite.SpanContext) {
	panic("tracing collector failed for: " + name)
}

// FinishSpan implements the TracingCollector interface.
func (PanickingTracingCollector) FinishSpan(_ bulkwrite.SpanContext, status string, _ map[string]string) {
	panic("tracing collector failed for status: " + status)
}

// PanickingLogHandler is a slog.Handler that panics on every record.
type PanickingLogHandler struct{}

// Enabled implements slog.Handler interface.
func (PanickingLogHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler interface.
func (PanickingLogHandler) Handle(_ context.Context, record slog.Record) error {
	panic("log handler failed for: " + record.Message)
}

// WithAttrs implements slog.Handler interface.
func (h PanickingLogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

// WithGroup implements slog.Handler interface.
func (h PanickingLogHandler) WithGroup(string) slog.Handler { return h }

var (
	_ bulkwrite.MetricsCollector = PanickingMetricsCollector{}
	_ bulkwrite.TracingCollector = PanickingTracingCollector{}
	_ slog.Handler               = PanickingLogHandler{}
)
