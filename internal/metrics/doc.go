// Package metrics counts what a stemswap run did: tracks by outcome, skip
// reasons, search latency, match types, and proposals. Each run owns a private
// Prometheus registry that can be written as a textfile for the node exporter.
package metrics
