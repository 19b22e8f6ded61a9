// Package broadcast fans each reconciled device snapshot out to realtime
// observers.
//
// Sinks are independent: the websocket hub, a Redis last-known-state cache
// with pub/sub, and an InfluxDB telemetry writer. A failing sink never
// stops the others and is not retried.
package broadcast
