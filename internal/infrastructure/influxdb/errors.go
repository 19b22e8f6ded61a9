package influxdb

import "errors"

// Sentinel errors returned by the telemetry client.
//
// Check them with errors.Is:
//
//	if errors.Is(err, influxdb.ErrNotConnected) {
//	    // client was closed; drop the point
//	}
var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps the startup ping failure.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by writes and health checks after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrEmptyPoint is returned when a point carries no fields. InfluxDB
	// rejects such points, so they are refused before queueing.
	ErrEmptyPoint = errors.New("influxdb: point has no fields")
)
