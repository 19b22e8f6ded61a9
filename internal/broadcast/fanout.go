package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/ventana-core/internal/device"
)

// EventDeviceUpdate is the event name observers subscribe to.
const EventDeviceUpdate = "deviceUpdate"

// Sink receives every snapshot.
type Sink interface {
	Publish(ctx context.Context, state *device.State) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, state *device.State) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, state *device.State) error { return f(ctx, state) }

type namedSink struct {
	name string
	sink Sink
}

// Fanout delivers snapshots to every registered sink in registration order.
type Fanout struct {
	mu    sync.RWMutex
	sinks []namedSink
}

// NewFanout creates an empty fan-out.
func NewFanout() *Fanout {
	return &Fanout{}
}

// Add registers sink under name. The name only appears in errors.
func (f *Fanout) Add(name string, sink Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
}

// Len returns the number of registered sinks.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

// Broadcast publishes state to every sink, even after one fails, and
// returns the joined failures.
func (f *Fanout) Broadcast(ctx context.Context, state *device.State) error {
	if state == nil {
		return nil
	}

	f.mu.RLock()
	sinks := append([]namedSink(nil), f.sinks...)
	f.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.sink.Publish(ctx, state); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
