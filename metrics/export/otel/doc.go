// Package otel publishes console metrics through OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per console counter and,
// for the API latency histogram, one gauge per cumulative bucket plus count
// and sum gauges. A single callback reads [mpconsole.Console.MetricsSnapshot]
// on each collection. The caller owns the MeterProvider.
package otel
