// Package command translates app commands into device control messages.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/ventana-core/internal/device"
)

// Commands accepted from the dashboard and mobile app.
const (
	Open            = "abrir"
	Close           = "cerrar"
	LockActivate    = "activarSeguro"
	LockDeactivate  = "desactivarSeguro"
	AlarmActivate   = "activarAlarma"
	AlarmDeactivate = "desactivarAlarma"
	ModeManual      = "manual"
	ModeAutomatic   = "automatico"
)

const (
	payloadActivate   = "activar"
	payloadDeactivate = "desactivar"
)

var (
	// ErrUnknownCommand is returned for a command outside the accepted set.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrTransportUnavailable is returned when the broker connection is down.
	ErrTransportUnavailable = errors.New("command: transport unavailable")
)

// Publisher sends control messages. *mqtt.Client implements it.
type Publisher interface {
	PublishString(topic, payload string) error
	IsConnected() bool
}

// Control is the resolved topic and payload for one command.
type Control struct {
	Topic   string
	Payload string
}

// Resolve maps cmd to the device's control topic and payload.
func Resolve(topics device.Topics, cmd string) (Control, error) {
	var field device.Field
	payload := cmd

	switch cmd {
	case Open, Close:
		field = device.FieldWindow
	case LockActivate:
		field, payload = device.FieldLock, payloadActivate
	case LockDeactivate:
		field, payload = device.FieldLock, payloadDeactivate
	case AlarmActivate:
		field, payload = device.FieldAlarm, payloadActivate
	case AlarmDeactivate:
		field, payload = device.FieldAlarm, payloadDeactivate
	case ModeManual, ModeAutomatic:
		field = device.FieldMode
	default:
		return Control{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	topic, _ := topics.Control(field)
	return Control{Topic: topic, Payload: payload}, nil
}

// Sender validates commands and publishes them.
type Sender struct {
	topics    device.Topics
	publisher Publisher
}

// NewSender creates a sender publishing under topics.
func NewSender(topics device.Topics, publisher Publisher) *Sender {
	return &Sender{topics: topics, publisher: publisher}
}

// Send resolves cmd and publishes it. Unknown commands are rejected
// before anything reaches the broker.
func (s *Sender) Send(_ context.Context, cmd string) (Control, error) {
	ctrl, err := Resolve(s.topics, cmd)
	if err != nil {
		return Control{}, err
	}
	if s.publisher == nil || !s.publisher.IsConnected() {
		return Control{}, ErrTransportUnavailable
	}
	if err := s.publisher.PublishString(ctrl.Topic, ctrl.Payload); err != nil {
		return Control{}, fmt.Errorf("publishing %s: %w", cmd, err)
	}
	return ctrl, nil
}
