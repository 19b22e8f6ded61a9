package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/ventana-core/internal/device"
)

// StateWriter records telemetry points. *influxdb.Client implements it.
type StateWriter interface {
	WriteDeviceState(deviceID string, fields map[string]any, at time.Time) error
}

// InfluxSink writes each snapshot as a telemetry point. Writes are batched
// by the client, so Publish never blocks on the network; it fails only when
// the point cannot be queued.
type InfluxSink struct {
	writer StateWriter
}

// NewInfluxSink creates a sink around writer.
func NewInfluxSink(writer StateWriter) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// Publish queues a point stamped with the snapshot's updatedAt.
func (s *InfluxSink) Publish(_ context.Context, state *device.State) error {
	at := state.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := s.writer.WriteDeviceState(state.DeviceID, stateFields(state), at); err != nil {
		return fmt.Errorf("writing telemetry for %s: %w", state.DeviceID, err)
	}
	return nil
}

// stateFields flattens a snapshot into point fields. Values are stored as
// reported by the firmware.
func stateFields(s *device.State) map[string]any {
	return map[string]any{
		"temperature": s.Temperature,
		"window":      s.Window,
		"mode":        s.Mode,
		"rain":        s.Rain,
		"lock":        s.Lock,
		"day_night":   s.DayNight,
		"alarm":       s.Alarm,
	}
}
