package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/ventana-core/internal/infrastructure/mqtt"
)

// DefaultQueueSize is the inbound buffer used when none is configured.
const DefaultQueueSize = 256

// ErrIngressRunning is returned by Start when the ingress is already running.
var ErrIngressRunning = errors.New("reconcile: ingress already running")

// Subscriber is the transport the ingress reads from. *mqtt.Client
// implements it.
type Subscriber interface {
	SubscribeDefault(topic string, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Handler processes one message. *Pipeline implements it.
type Handler interface {
	Handle(ctx context.Context, topic string, payload []byte) error
}

type message struct {
	topic   string
	payload []byte
}

// Ingress feeds a Handler from a wildcard subscription.
//
// The transport callback only enqueues; exactly one worker drains the
// queue, so messages are handled one at a time in arrival order. When the
// queue is full the callback blocks, which holds back the transport.
type Ingress struct {
	sub     Subscriber
	topic   string
	handler Handler
	logger  Logger
	queue   chan message

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewIngress creates an ingress for topic. queueSize <= 0 uses DefaultQueueSize.
func NewIngress(sub Subscriber, topic string, handler Handler, queueSize int, logger Logger) *Ingress {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ingress{
		sub:     sub,
		topic:   topic,
		handler: handler,
		logger:  logger,
		queue:   make(chan message, queueSize),
	}
}

// Start launches the worker and subscribes. ctx is passed to the handler
// until it is cancelled; the worker keeps running until Stop.
func (i *Ingress) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.running {
		return ErrIngressRunning
	}

	i.stop = make(chan struct{})
	i.done = make(chan struct{})
	go i.run(ctx, i.stop, i.done)

	if err := i.sub.SubscribeDefault(i.topic, i.enqueue(i.stop)); err != nil {
		close(i.stop)
		<-i.done
		return fmt.Errorf("subscribing to %s: %w", i.topic, err)
	}

	i.running = true
	i.logger.Info("ingress started", "topic", i.topic, "queue_size", cap(i.queue))
	return nil
}

// Stop unsubscribes, handles whatever is already queued and waits for the
// worker to exit. It is safe to call more than once.
func (i *Ingress) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.running {
		return
	}
	i.running = false

	if err := i.sub.Unsubscribe(i.topic); err != nil {
		i.logger.Warn("ingress unsubscribe failed", "topic", i.topic, "error", err)
	}
	close(i.stop)
	<-i.done
	i.logger.Info("ingress stopped", "topic", i.topic)
}

// enqueue returns the transport callback. It blocks while the queue is
// full and gives up only once the ingress is stopping.
func (i *Ingress) enqueue(stop <-chan struct{}) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		select {
		case i.queue <- message{topic: topic, payload: payload}:
			return nil
		case <-stop:
			return fmt.Errorf("ingress stopped, dropping message on %s", topic)
		}
	}
}

// run is the single worker. Cancelling ctx does not end it: from then on
// messages are handled with a context that is never cancelled, and only Stop
// returns the worker, after draining the queue.
func (i *Ingress) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case msg := <-i.queue:
			if ctx.Err() != nil {
				ctx = context.WithoutCancel(ctx)
			}
			i.handle(ctx, msg)
		case <-stop:
			i.drain(context.WithoutCancel(ctx))
			return
		}
	}
}

// drain handles messages that were queued before Stop.
func (i *Ingress) drain(ctx context.Context) {
	for {
		select {
		case msg := <-i.queue:
			i.handle(ctx, msg)
		default:
			return
		}
	}
}

func (i *Ingress) handle(ctx context.Context, msg message) {
	if err := i.handler.Handle(ctx, msg.topic, msg.payload); err != nil {
		i.logger.Debug("message processing failed", "topic", msg.topic, "error", err)
	}
}
