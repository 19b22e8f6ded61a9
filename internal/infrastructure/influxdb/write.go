package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DeviceStateMeasurement holds one point per reconciled device snapshot.
const DeviceStateMeasurement = "device_state"

// deviceTag is the tag key that identifies the reporting device.
const deviceTag = "device_id"

// WriteDeviceState queues a device snapshot as a device_state point tagged
// with deviceID.
//
// The call does not wait for the network. A nil error means the point was
// queued; delivery failures arrive later through SetOnError.
//
//	err := client.WriteDeviceState("ventana1", map[string]any{"temperature": 21.5, "window": "abierto"}, time.Now())
//
// Returns:
//   - ErrNotConnected: the client has been closed
//   - ErrEmptyPoint: fields is empty
func (c *Client) WriteDeviceState(deviceID string, fields map[string]any, at time.Time) error {
	if deviceID == "" {
		return fmt.Errorf("%w: empty %s tag", ErrEmptyPoint, deviceTag)
	}
	return c.writePoint(DeviceStateMeasurement, map[string]string{deviceTag: deviceID}, fields, at)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(fields) == 0 {
		return ErrEmptyPoint
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
	return nil
}
