package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/ventana-core/internal/device"
)

// DefaultMessageTimeout bounds one message's trip through the pipeline.
const DefaultMessageTimeout = 10 * time.Second

// Logger defines the logging interface for the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the persistence the pipeline needs from the device package.
type Store interface {
	Reconcile(ctx context.Context, deviceID string, delta device.Delta) (prev, next *device.State, err error)
}

// HistoryRecorder appends actionable transitions.
type HistoryRecorder interface {
	Append(ctx context.Context, entry *device.HistoryEntry) error
}

// Notifier tells the device owner that the alarm went off.
type Notifier interface {
	AlarmActivated(ctx context.Context, state *device.State) error
}

// Broadcaster pushes the post-update snapshot to realtime observers.
type Broadcaster interface {
	Broadcast(ctx context.Context, state *device.State) error
}

// Options configures a Pipeline. Classifier, Store and History are required.
type Options struct {
	DeviceID    string
	Classifier  *device.Classifier
	Store       Store
	History     HistoryRecorder
	Notifier    Notifier    // may be nil
	Broadcaster Broadcaster // may be nil
	Timeout     time.Duration
	Logger      Logger
}

// Pipeline processes one inbound message at a time. It holds no per-message
// state, but callers must serialise Handle calls to keep history in arrival
// order; Ingress does this.
type Pipeline struct {
	deviceID    string
	classifier  *device.Classifier
	store       Store
	history     HistoryRecorder
	notifier    Notifier
	broadcaster Broadcaster
	timeout     time.Duration
	logger      Logger
}

// NewPipeline creates a pipeline for the device named in opts.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.DeviceID == "" {
		return nil, device.ErrInvalidDeviceID
	}
	if opts.Classifier == nil || opts.Store == nil || opts.History == nil {
		return nil, errors.New("reconcile: classifier, store and history are required")
	}

	p := &Pipeline{
		deviceID:    opts.DeviceID,
		classifier:  opts.Classifier,
		store:       opts.Store,
		history:     opts.History,
		notifier:    opts.Notifier,
		broadcaster: opts.Broadcaster,
		timeout:     opts.Timeout,
		logger:      opts.Logger,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultMessageTimeout
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	return p, nil
}

// Handle runs one (topic, payload) pair through the pipeline.
//
// Unrecognized topics return nil without touching anything. A persistence
// failure is returned and nothing further happens for this message. Any
// other failure is logged and the remaining steps still run.
func (p *Pipeline) Handle(ctx context.Context, topic string, payload []byte) error {
	field := p.classifier.Classify(topic)
	if field == device.FieldUnrecognized {
		p.logger.Debug("ignoring unrecognized topic", "topic", topic)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	delta := device.NewDelta(field, payload)
	if delta.IsEmpty() {
		p.logger.Debug("payload carries no value", "field", field, "payload", string(payload))
	}

	prev, next, err := p.store.Reconcile(ctx, p.deviceID, delta)
	if err != nil {
		p.logger.Error("reconciling device state failed",
			"device_id", p.deviceID, "field", field, "error", err)
		return fmt.Errorf("reconciling %s: %w", field, err)
	}

	raw := string(payload)
	for _, change := range DetectChanges(field, prev, next) {
		action := ResolveAction(change.Field, change.State, raw)
		if action.IsZero() {
			continue
		}
		p.record(ctx, change, action)

		if change.Field == device.FieldAlarm && action.Label == device.ActionAlarmActivate {
			p.notify(ctx, change.State)
		}
	}

	p.broadcast(ctx, next)
	return nil
}

func (p *Pipeline) record(ctx context.Context, change Change, action Action) {
	entry := &device.HistoryEntry{
		DeviceID: change.State.DeviceID,
		Action:   action.Label,
		Details:  action.Details,
	}
	if err := p.history.Append(ctx, entry); err != nil {
		p.logger.Error("appending history failed",
			"device_id", entry.DeviceID, "action", entry.Action, "error", err)
		return
	}
	p.logger.Info("history recorded",
		"device_id", entry.DeviceID, "field", change.Field,
		"action", entry.Action, "details", entry.Details)
}

func (p *Pipeline) notify(ctx context.Context, state *device.State) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.AlarmActivated(ctx, state); err != nil {
		p.logger.Warn("alarm notification failed", "device_id", state.DeviceID, "error", err)
	}
}

func (p *Pipeline) broadcast(ctx context.Context, state *device.State) {
	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.Broadcast(ctx, state); err != nil {
		p.logger.Warn("broadcast failed", "device_id", state.DeviceID, "error", err)
	}
}
