// Package telemetry is the monitoring sink for the dispatch controller.
//
// The hub fans events out to SSE subscribers over a bounded ring buffer with
// Last-Event-ID resume; slow consumers lose events rather than block the
// dispatch path. Alongside the stream, a Prometheus registry carries the
// numeric view: queue depth, per-tier counters, dispatch latency, mode, and
// band switches.
package telemetry
