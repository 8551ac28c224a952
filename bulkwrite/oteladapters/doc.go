// Package oteladapters provides OpenTelemetry implementations of the bulkwrite observability interfaces.
//
// Wire them into an executor with asyncexecutor.WithMetrics, asyncexecutor.WithTracing and
// asyncexecutor.WithContextualLogger:
//
//	executor, err := asyncexecutor.New(store,
//		asyncexecutor.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("bulkwrite"))),
//		asyncexecutor.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("bulkwrite"))),
//		asyncexecutor.WithContextualLogger(oteladapters.NewSlogBridgeLogger("bulkwrite")),
//	)
package oteladapters
