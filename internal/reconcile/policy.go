package reconcile

import (
	"strings"

	"github.com/nerrad567/ventana-core/internal/device"
)

// Temperature band for the automatic window ladder, in degrees Celsius.
const (
	coldBelow = 15.0
	hotAbove  = 25.0
)

// History details written by the automatic window ladder.
const (
	detailsNightClose = "cierre y activación de seguro"
	detailsRainClose  = "cierre por lluvia"
	detailsColdClose  = "cierre por frío"
	detailsHeatOpen   = "apertura por calor"
	detailsDayOpen    = "apertura por día"
)

// Action is the history label and details resolved for one change.
// A zero Label means nothing is recorded.
type Action struct {
	Label   device.Action
	Details string
}

// IsZero reports whether no history entry should be written.
func (a Action) IsZero() bool { return a.Label == device.ActionNone }

// ResolveAction decides what to record for a change of field, given the
// post-update snapshot and the raw payload that caused it.
func ResolveAction(field device.Field, next *device.State, raw string) Action {
	if next == nil {
		return Action{}
	}

	switch field {
	case device.FieldWindow:
		return resolveWindow(next, raw)
	case device.FieldAlarm:
		if containsFold(next.Alarm, "activada") {
			return Action{Label: device.ActionAlarmActivate, Details: raw}
		}
		return Action{Label: device.ActionAlarmDeactivate, Details: raw}
	case device.FieldLock:
		if containsFold(next.Lock, "activo") {
			return Action{Label: device.ActionLockActivate, Details: raw}
		}
		return Action{Label: device.ActionLockDeactivate, Details: raw}
	case device.FieldMode:
		if containsFold(next.Mode, "manual") {
			return Action{Label: device.ActionModeManual, Details: raw}
		}
		return Action{Label: device.ActionModeAutomatic, Details: raw}
	default:
		return Action{}
	}
}

// resolveWindow walks the priority ladder; the first matching rung wins.
// The night rung records the lock intent only and never actuates it.
func resolveWindow(s *device.State, raw string) Action {
	open := containsFold(s.Window, "abierto")
	passThrough := Action{Label: device.ActionClose, Details: string(device.ActionClose)}
	if open {
		passThrough = Action{Label: device.ActionOpen, Details: string(device.ActionOpen)}
	}

	if isManual(s.Mode) {
		return passThrough
	}

	isDay := containsFold(s.DayNight, "dia")
	isNight := containsFold(s.DayNight, "noche")

	switch {
	case isNight:
		return Action{Label: device.ActionClose, Details: detailsNightClose}
	case isDay && isRaining(s.Rain):
		return Action{Label: device.ActionClose, Details: detailsRainClose}
	case isDay && s.Temperature < coldBelow:
		return Action{Label: device.ActionClose, Details: detailsColdClose}
	case isDay && s.Temperature > hotAbove:
		if containsFold(raw, "abierto") {
			return Action{Label: device.ActionOpen, Details: string(device.ActionOpen)}
		}
		return Action{Label: device.ActionOpen, Details: detailsHeatOpen}
	case isDay:
		if open {
			return Action{Label: device.ActionOpen, Details: detailsDayOpen}
		}
		return Action{}
	default:
		return passThrough
	}
}

func isManual(mode string) bool { return strings.EqualFold(mode, "manual") }

func isRaining(rain string) bool { return strings.EqualFold(rain, "si") }

// containsFold is a plain case-insensitive substring match. "desactivada"
// contains "activada" and resolves the same way.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

