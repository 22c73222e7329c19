// Package otel exposes providerAuth engine metrics as OpenTelemetry
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per labelled family
// (login attempts, refresh, lockout events, audit delivery), one per plain
// counter, and an Int64ObservableGauge per latency bucket. Family series are
// told apart by outcome and reason attributes. One callback reads the
// engine's snapshot and audit stats on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
