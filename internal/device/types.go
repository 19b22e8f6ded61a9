package device

import (
	"strconv"
	"time"
)

// Field names one piece of device state. Each state topic carries exactly one field.
type Field string

// Fields published by the device firmware.
const (
	FieldUnrecognized Field = ""
	FieldWindow       Field = "window"
	FieldMode         Field = "mode"
	FieldLock         Field = "lock"
	FieldAlarm        Field = "alarm"
	FieldTemperature  Field = "temperature"
	FieldRain         Field = "rain"
	FieldDayNight     Field = "dayNight"
)

// ActionableFields are the fields whose transitions are recorded in history,
// in the order they are evaluated.
var ActionableFields = []Field{FieldWindow, FieldAlarm, FieldLock, FieldMode}

// IsActionable reports whether transitions of f are history-worthy.
func (f Field) IsActionable() bool {
	for _, a := range ActionableFields {
		if f == a {
			return true
		}
	}
	return false
}

// Action is a history label. The set is closed.
type Action string

// History actions.
const (
	ActionNone            Action = ""
	ActionOpen            Action = "apertura"
	ActionClose           Action = "cierre"
	ActionAlarmActivate   Action = "activarAlarma"
	ActionAlarmDeactivate Action = "desactivarAlarma"
	ActionLockActivate    Action = "activarSeguro"
	ActionLockDeactivate  Action = "desactivarSeguro"
	ActionModeManual      Action = "manual"
	ActionModeAutomatic   Action = "automatico"
)

// Values a freshly created device record starts with.
const (
	DefaultWindow      = "cerrado"
	DefaultMode        = "Manual"
	DefaultRain        = "NO"
	DefaultLock        = "desactivo"
	DefaultDayNight    = "Noche"
	DefaultAlarm       = "DESACTIVADA"
	DefaultTemperature = 0.0
)

// State is the live record for one device. JSON names match what the
// dashboard and mobile app already consume.
type State struct {
	DeviceID    string    `json:"deviceId"`
	Window      string    `json:"ventana"`
	Mode        string    `json:"modo"`
	Rain        string    `json:"lluvia"`
	Lock        string    `json:"seguro"`
	DayNight    string    `json:"diaNoche"`
	Alarm       string    `json:"alarma"`
	Temperature float64   `json:"temperatura"`
	OwnerID     string    `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultState returns the record a device gets before its first message.
func DefaultState(deviceID string) State {
	return State{
		DeviceID:    deviceID,
		Window:      DefaultWindow,
		Mode:        DefaultMode,
		Rain:        DefaultRain,
		Lock:        DefaultLock,
		DayNight:    DefaultDayNight,
		Alarm:       DefaultAlarm,
		Temperature: DefaultTemperature,
	}
}

// Value returns the field's value as text, for diffing and logging.
func (s State) Value(f Field) string {
	switch f {
	case FieldWindow:
		return s.Window
	case FieldMode:
		return s.Mode
	case FieldLock:
		return s.Lock
	case FieldAlarm:
		return s.Alarm
	case FieldRain:
		return s.Rain
	case FieldDayNight:
		return s.DayNight
	case FieldTemperature:
		return strconv.FormatFloat(s.Temperature, 'g', -1, 64)
	default:
		return ""
	}
}
