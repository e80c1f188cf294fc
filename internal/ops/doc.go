// Package ops serves the operational HTTP surface: health probes, queue
// statistics for dashboards and alerting, Prometheus metrics, and the
// producer-facing notification endpoints (create, inspect, cancel).
package ops
