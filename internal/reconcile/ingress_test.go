package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ventana-core/internal/device"
	"github.com/nerrad567/ventana-core/internal/infrastructure/config"
	"github.com/nerrad567/ventana-core/internal/infrastructure/mqtt"
)

// fakeSubscriber captures the handler so tests can inject messages directly.
type fakeSubscriber struct {
	mu           sync.Mutex
	handler      mqtt.MessageHandler
	subscribeErr error
	unsubscribed bool
}

func (s *fakeSubscriber) SubscribeDefault(_ string, handler mqtt.MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.handler = handler
	return nil
}

func (s *fakeSubscriber) Unsubscribe(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = true
	return nil
}

func (s *fakeSubscriber) deliver(topic, payload string) error {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	return h(topic, []byte(payload))
}

// recordingHandler records calls and tracks concurrent entries.
type recordingHandler struct {
	mu       sync.Mutex
	got      []string
	inFlight int
	overlap  bool
	ctxErrs  int
	gate     chan struct{}
	seen     chan struct{}
}

func newRecordingHandler(buffer int) *recordingHandler {
	return &recordingHandler{seen: make(chan struct{}, buffer)}
}

func (h *recordingHandler) Handle(ctx context.Context, topic string, payload []byte) error {
	h.mu.Lock()
	h.inFlight++
	if h.inFlight > 1 {
		h.overlap = true
	}
	gate := h.gate
	h.mu.Unlock()

	if gate != nil {
		<-gate
	}

	h.mu.Lock()
	if ctx.Err() != nil {
		h.ctxErrs++
	}
	h.got = append(h.got, topic+"="+string(payload))
	h.inFlight--
	h.mu.Unlock()

	h.seen <- struct{}{}
	return nil
}

func (h *recordingHandler) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.seen:
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for message %d of %d", i+1, n)
		}
	}
}

func (h *recordingHandler) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.got...)
}

func TestIngress_ProcessesInOrderOneAtATime(t *testing.T) {
	sub := &fakeSubscriber{}
	handler := newRecordingHandler(50)
	ingress := NewIngress(sub, "esp32/#", handler, 4, nil)

	if err := ingress.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ingress.Stop()

	const count = 50
	for i := 0; i < count; i++ {
		if err := sub.deliver(topicTemp, fmt.Sprintf("%d", i)); err != nil {
			t.Fatalf("deliver(%d) error = %v", i, err)
		}
	}
	handler.waitFor(t, count)

	got := handler.calls()
	for i := 0; i < count; i++ {
		want := fmt.Sprintf("%s=%d", topicTemp, i)
		if got[i] != want {
			t.Fatalf("call %d = %q, want %q", i, got[i], want)
		}
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if handler.overlap {
		t.Error("handler was entered concurrently")
	}
}

func TestIngress_FullQueueBlocksCallback(t *testing.T) {
	sub := &fakeSubscriber{}
	handler := newRecordingHandler(10)
	handler.gate = make(chan struct{})
	ingress := NewIngress(sub, "esp32/#", handler, 1, nil)

	if err := ingress.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ingress.Stop()

	// First message occupies the worker, second fills the queue.
	if err := sub.deliver(topicWindow, "1"); err != nil {
		t.Fatalf("deliver(1) error = %v", err)
	}
	waitUntil(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return handler.inFlight == 1
	})
	if err := sub.deliver(topicWindow, "2"); err != nil {
		t.Fatalf("deliver(2) error = %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- sub.deliver(topicWindow, "3") }()

	select {
	case <-blocked:
		t.Fatal("third delivery returned while the queue was full")
	case <-time.After(100 * time.Millisecond):
	}

	close(handler.gate)
	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("deliver(3) error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("third delivery never unblocked")
	}
	handler.waitFor(t, 3)

	if got := handler.calls(); len(got) != 3 {
		t.Errorf("calls = %v, want 3 messages, none dropped", got)
	}
}

func TestIngress_StopDrainsQueueAndUnsubscribes(t *testing.T) {
	sub := &fakeSubscriber{}
	handler := newRecordingHandler(10)
	handler.gate = make(chan struct{})
	ingress := NewIngress(sub, "esp32/#", handler, 8, nil)

	if err := ingress.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := sub.deliver(topicRain, fmt.Sprintf("%d", i)); err != nil {
			t.Fatalf("deliver(%d) error = %v", i, err)
		}
	}
	close(handler.gate)

	ingress.Stop()
	ingress.Stop()

	if got := handler.calls(); len(got) != 3 {
		t.Errorf("calls after Stop = %v, want all 3 queued messages handled", got)
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.unsubscribed {
		t.Error("Stop() did not unsubscribe")
	}
}

func TestIngress_CancelledContextStillDrainsOnStop(t *testing.T) {
	// The worker selects between a ready queue and a done context; repeat so
	// both orders are exercised.
	for run := 0; run < 20; run++ {
		sub := &fakeSubscriber{}
		handler := newRecordingHandler(10)
		handler.gate = make(chan struct{})
		ingress := NewIngress(sub, "esp32/#", handler, 8, nil)

		ctx, cancel := context.WithCancel(context.Background())
		if err := ingress.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			if err := sub.deliver(topicRain, fmt.Sprintf("%d", i)); err != nil {
				t.Fatalf("deliver(%d) error = %v", i, err)
			}
		}

		cancel()
		close(handler.gate)
		ingress.Stop()

		handler.mu.Lock()
		got, ctxErrs := len(handler.got), handler.ctxErrs
		handler.mu.Unlock()
		if got != 3 {
			t.Fatalf("run %d: handled %d messages, want all 3 queued messages", run, got)
		}
		if ctxErrs > 1 {
			t.Errorf("run %d: %d messages handled with a cancelled context, want at most the in-flight one", run, ctxErrs)
		}
	}
}

func TestIngress_StartErrors(t *testing.T) {
	sub := &fakeSubscriber{subscribeErr: mqtt.ErrNotConnected}
	ingress := NewIngress(sub, "esp32/#", newRecordingHandler(1), 0, nil)

	if err := ingress.Start(context.Background()); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Fatalf("Start() error = %v, want ErrNotConnected", err)
	}

	sub.subscribeErr = nil
	if err := ingress.Start(context.Background()); err != nil {
		t.Fatalf("Start() after failure error = %v", err)
	}
	defer ingress.Stop()

	if err := ingress.Start(context.Background()); !errors.Is(err, ErrIngressRunning) {
		t.Errorf("second Start() error = %v, want ErrIngressRunning", err)
	}
}

// TestIngress_EndToEndOverBroker runs the full pipeline behind a real
// client on an in-process broker.
func TestIngress_EndToEndOverBroker(t *testing.T) {
	broker, err := mqtt.StartEmbeddedBroker("127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("StartEmbeddedBroker() error = %v", err)
	}
	t.Cleanup(func() { broker.Close() }) //nolint:errcheck // Test cleanup

	host, port, err := broker.HostPort()
	if err != nil {
		t.Fatalf("HostPort() error = %v", err)
	}
	connect := func(clientID string) *mqtt.Client {
		c, err := mqtt.Connect(config.MQTTConfig{
			Broker:    config.MQTTBrokerConfig{Host: host, Port: port, ClientID: clientID},
			QoS:       1,
			Reconnect: config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 5},
		})
		if err != nil {
			t.Fatalf("Connect(%s) error = %v", clientID, err)
		}
		t.Cleanup(func() { c.Close() }) //nolint:errcheck // Test cleanup
		return c
	}
	core := connect("ventana-core-test")
	firmware := connect("ventana-firmware-test")

	h := newHarness(t)
	ingress := NewIngress(core, testTopics.Wildcard(), h.pipeline, 16, nil)
	if err := ingress.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ingress.Stop()

	messages := []struct{ topic, payload string }{
		{topicMode, "Automatico"},
		{topicDayNight, "Dia"},
		{topicTemp, "12"},
		{topicWindow, "abierto"},
	}
	for _, m := range messages {
		if err := firmware.PublishString(m.topic, m.payload); err != nil {
			t.Fatalf("PublishString(%s) error = %v", m.topic, err)
		}
	}

	waitUntil(t, func() bool { return len(h.broadcaster.all()) == len(messages) })

	entries := h.entries(t)
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].Action != device.ActionClose || entries[0].Details != "cierre por frío" {
		t.Errorf("window entry = %+v, want cierre por frío", entries[0])
	}

	last := h.broadcaster.all()[len(messages)-1]
	if last.Window != "abierto" || last.Temperature != 12 || last.Mode != "Automatico" {
		t.Errorf("final broadcast = %+v", last)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}
