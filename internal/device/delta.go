package device

import (
	"math"
	"strconv"
	"strings"
)

// Delta is the single-field change carried by one inbound message.
// It is built once and never mutated; Apply returns a new State.
type Delta struct {
	field       Field
	text        string
	temperature float64
	empty       bool
}

// NewDelta converts a raw payload into a typed change for field.
//
// Text fields pass through unchanged. A temperature payload that does not
// parse as a finite number yields an empty delta: the record is still
// touched (updatedAt) but no value changes.
func NewDelta(field Field, payload []byte) Delta {
	raw := string(payload)

	switch field {
	case FieldTemperature:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Delta{field: field, empty: true}
		}
		return Delta{field: field, temperature: v, text: raw}
	case FieldWindow, FieldMode, FieldLock, FieldAlarm, FieldRain, FieldDayNight:
		return Delta{field: field, text: raw}
	default:
		return Delta{field: field, empty: true}
	}
}

// Field returns the field this delta writes.
func (d Delta) Field() Field { return d.field }

// Raw returns the payload text as received.
func (d Delta) Raw() string { return d.text }

// IsEmpty reports whether applying the delta changes no value.
func (d Delta) IsEmpty() bool { return d.empty }

// Apply returns a copy of s with the delta's field set. Every other field
// is left as it was.
func (d Delta) Apply(s State) State {
	if d.empty {
		return s
	}

	switch d.field {
	case FieldWindow:
		s.Window = d.text
	case FieldMode:
		s.Mode = d.text
	case FieldLock:
		s.Lock = d.text
	case FieldAlarm:
		s.Alarm = d.text
	case FieldRain:
		s.Rain = d.text
	case FieldDayNight:
		s.DayNight = d.text
	case FieldTemperature:
		s.Temperature = d.temperature
	}
	return s
}
