// Package helper provides test doubles for the bulkwrite packages:
// stores with injectable faults or blocking behavior, and spies for logging, metrics and tracing.
package helper
