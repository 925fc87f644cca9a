// Package prometheus exposes console metrics as a prometheus.Collector.
//
// Counters are published as mpconsole_*_total; API latency is the
// mpconsole_api_request_duration_seconds histogram. Nothing is registered
// globally: register the [Exporter] yourself or mount [Exporter.Handler].
package prometheus
