package reconcile

import "github.com/nerrad567/ventana-core/internal/device"

// Change is one actionable field whose value moved in this message.
type Change struct {
	Field device.Field
	State *device.State
}

// DetectChanges returns the actionable fields changed by writing field.
//
// Only the field just written is considered, so a concurrent out-of-band
// write to another column never yields a change here. A nil prev is
// compared against the default record. The result follows the order of
// device.ActionableFields and is empty when nothing moved.
func DetectChanges(field device.Field, prev, next *device.State) []Change {
	if next == nil || !field.IsActionable() {
		return nil
	}

	before := device.DefaultState(next.DeviceID)
	if prev != nil {
		before = *prev
	}

	var changes []Change
	for _, f := range device.ActionableFields {
		if f != field {
			continue
		}
		if before.Value(f) != next.Value(f) {
			changes = append(changes, Change{Field: f, State: next})
		}
	}
	return changes
}
