// Package notify tells device owners about alarm activations.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/ventana-core/internal/account"
	"github.com/nerrad567/ventana-core/internal/device"
	"github.com/nerrad567/ventana-core/internal/infrastructure/logging"
	"github.com/nerrad567/ventana-core/internal/push"
)

// Alarm notification template shown on the owner's phone.
const (
	AlarmTitle  = "Alarma Activada"
	AlarmBody   = "La alarma se ha activado. Por favor, revisa tu dashboard."
	AlarmScreen = "Dashboard"
)

// Logger defines the logging interface for the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Users looks up device owners.
type Users interface {
	GetByID(ctx context.Context, id string) (*account.User, error)
}

// Sender delivers one push message. *push.Sender implements it.
type Sender interface {
	Send(ctx context.Context, msg push.Message) error
}

// Dispatcher sends the alarm notification to a device's owner.
type Dispatcher struct {
	users  Users
	sender Sender
	logger Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(users Users, sender Sender, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{users: users, sender: sender, logger: logger}
}

// AlarmActivated notifies the owner of state. A device with no owner, or an
// owner without a push token, is skipped without error.
func (d *Dispatcher) AlarmActivated(ctx context.Context, state *device.State) error {
	if state == nil || state.OwnerID == "" {
		d.logger.Debug("alarm activated on unowned device, not notifying")
		return nil
	}

	user, err := d.users.GetByID(ctx, state.OwnerID)
	if errors.Is(err, account.ErrUserNotFound) {
		d.logger.Debug("device owner not found, not notifying",
			"device_id", state.DeviceID, "owner_id", state.OwnerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up owner: %w", err)
	}
	if !user.CanReceivePush() {
		d.logger.Debug("owner has no push token, not notifying",
			"device_id", state.DeviceID, "owner_id", user.ID)
		return nil
	}

	if err := d.sender.Send(ctx, AlarmMessage(user.PushToken)); err != nil {
		return fmt.Errorf("sending alarm notification: %w", err)
	}
	d.logger.Info("alarm notification sent",
		"device_id", state.DeviceID,
		"owner_id", user.ID,
		"token", logging.Redact(user.PushToken),
	)
	return nil
}

// AlarmMessage builds the alarm push message for token.
func AlarmMessage(token string) push.Message {
	return push.Message{
		To:    token,
		Sound: "default",
		Title: AlarmTitle,
		Body:  AlarmBody,
		Data:  map[string]any{"screen": AlarmScreen},
	}
}
