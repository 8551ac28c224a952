// Package promadapters provides a Prometheus implementation of bulkwrite.MetricsCollector.
package promadapters

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

const (
	helpDuration = "bulkwrite operation duration in seconds"
	helpCounter  = "bulkwrite operation counter"
	helpValue    = "bulkwrite current value"
)

// MetricsCollector implements bulkwrite.MetricsCollector with Prometheus vectors:
//   - RecordDuration -> HistogramVec in seconds
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// A vector is created and registered on first use of a metric name. Its label names are fixed by
// that first call: later labels missing from the set are exported as empty, unknown ones are dropped.
type MetricsCollector struct {
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	labelNames map[string][]string
}

// Option configures a MetricsCollector.
type Option func(*MetricsCollector)

// WithBuckets overrides the histogram buckets; the default is prometheus.DefBuckets.
func WithBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.buckets = buckets
	}
}

// NewMetricsCollector creates a collector registering its vectors with the given registerer.
func NewMetricsCollector(registerer prometheus.Registerer, options ...Option) *MetricsCollector {
	m := &MetricsCollector{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		labelNames: make(map[string][]string),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// RecordDuration observes a duration in seconds.
func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.histograms[metric]
	if !ok {
		vec = register(m.registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metric,
			Help:    helpDuration,
			Buckets: m.buckets,
		}, m.fixLabelNames(metric, labels)))
		m.histograms[metric] = vec
	}

	vec.WithLabelValues(m.labelValues(metric, labels)...).Observe(duration.Seconds())
}

// IncrementCounter adds one to a counter.
func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.counters[metric]
	if !ok {
		vec = register(m.registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metric,
			Help: helpCounter,
		}, m.fixLabelNames(metric, labels)))
		m.counters[metric] = vec
	}

	vec.WithLabelValues(m.labelValues(metric, labels)...).Inc()
}

// RecordValue sets a gauge.
func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vec, ok := m.gauges[metric]
	if !ok {
		vec = register(m.registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metric,
			Help: helpValue,
		}, m.fixLabelNames(metric, labels)))
		m.gauges[metric] = vec
	}

	vec.WithLabelValues(m.labelValues(metric, labels)...).Set(value)
}

func (m *MetricsCollector) fixLabelNames(metric string, labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	slices.Sort(names)

	m.labelNames[metric] = names

	return names
}

func (m *MetricsCollector) labelValues(metric string, labels map[string]string) []string {
	names := m.labelNames[metric]
	values := make([]string, len(names))

	for i, name := range names {
		values[i] = labels[name]
	}

	return values
}

// register registers the collector, or returns the one already registered under the same descriptor.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if registerer == nil {
		return collector
	}

	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			if existing, ok := alreadyRegistered.ExistingCollector.(C); ok {
				return existing
			}
		}
	}

	return collector
}

var _ bulkwrite.MetricsCollector = (*MetricsCollector)(nil)
