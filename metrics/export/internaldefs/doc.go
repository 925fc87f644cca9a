// Package internaldefs holds the metric names, help text and histogram bounds
// shared by the Prometheus and OTel exporters, so both publish identical
// series.
package internaldefs
