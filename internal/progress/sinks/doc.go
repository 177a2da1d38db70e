// Package sinks holds the bundled progress.Sink implementations: structured
// zap logging and Prometheus collectors.
package sinks
