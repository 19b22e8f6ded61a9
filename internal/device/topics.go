package device

import "fmt"

// Topic leaves below the configured prefix, as flashed into the firmware.
const (
	topicWindowState   = "ventana/estado"
	topicModeState     = "modo/estado"
	topicLockState     = "seguro/estado"
	topicAlarmState    = "alarma/estado"
	topicTemperature   = "sensores/temperatura"
	topicRain          = "sensores/lluvia"
	topicDayNight      = "sensores/diaNoche"
	topicWindowControl = "ventana/control"
	topicModeControl   = "modo/control"
	topicLockControl   = "seguro/control"
	topicAlarmControl  = "alarma/control"
)

// Topics builds the MQTT topics for a device under one prefix.
//
//	topics := device.NewTopics("esp32")
//	topics.State(device.FieldWindow) // "esp32/ventana/estado"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders rooted at prefix.
func NewTopics(prefix string) Topics {
	return Topics{prefix: prefix}
}

func (t Topics) join(leaf string) string {
	return fmt.Sprintf("%s/%s", t.prefix, leaf)
}

// Wildcard matches every topic the device publishes.
func (t Topics) Wildcard() string {
	return t.join("#")
}

// State returns the state topic for f, or "" for FieldUnrecognized.
func (t Topics) State(f Field) string {
	switch f {
	case FieldWindow:
		return t.join(topicWindowState)
	case FieldMode:
		return t.join(topicModeState)
	case FieldLock:
		return t.join(topicLockState)
	case FieldAlarm:
		return t.join(topicAlarmState)
	case FieldTemperature:
		return t.join(topicTemperature)
	case FieldRain:
		return t.join(topicRain)
	case FieldDayNight:
		return t.join(topicDayNight)
	default:
		return ""
	}
}

// Control returns the command topic for an actuated field. Sensors have none.
func (t Topics) Control(f Field) (string, bool) {
	switch f {
	case FieldWindow:
		return t.join(topicWindowControl), true
	case FieldMode:
		return t.join(topicModeControl), true
	case FieldLock:
		return t.join(topicLockControl), true
	case FieldAlarm:
		return t.join(topicAlarmControl), true
	default:
		return "", false
	}
}

// Classifier maps inbound topics to fields. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	routes map[string]Field
}

// NewClassifier builds the exact-match routing table for topics.
func NewClassifier(topics Topics) *Classifier {
	c := &Classifier{routes: make(map[string]Field)}
	for _, f := range []Field{
		FieldWindow, FieldMode, FieldLock, FieldAlarm,
		FieldTemperature, FieldRain, FieldDayNight,
	} {
		c.routes[topics.State(f)] = f
	}
	return c
}

// Classify returns the field carried by topic, or FieldUnrecognized.
// Control topics echoed back by the broker are unrecognized.
func (c *Classifier) Classify(topic string) Field {
	return c.routes[topic]
}
