package command

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/ventana-core/internal/device"
)

type fakePublisher struct {
	connected bool
	err       error
	sent      []Control
}

func (p *fakePublisher) PublishString(topic, payload string) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, Control{Topic: topic, Payload: payload})
	return nil
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

func TestResolve(t *testing.T) {
	topics := device.NewTopics("esp32")

	tests := []struct {
		cmd  string
		want Control
	}{
		{"abrir", Control{"esp32/ventana/control", "abrir"}},
		{"cerrar", Control{"esp32/ventana/control", "cerrar"}},
		{"activarSeguro", Control{"esp32/seguro/control", "activar"}},
		{"desactivarSeguro", Control{"esp32/seguro/control", "desactivar"}},
		{"activarAlarma", Control{"esp32/alarma/control", "activar"}},
		{"desactivarAlarma", Control{"esp32/alarma/control", "desactivar"}},
		{"manual", Control{"esp32/modo/control", "manual"}},
		{"automatico", Control{"esp32/modo/control", "automatico"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			got, err := Resolve(topics, tt.cmd)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	for _, cmd := range []string{"", "Abrir", "explotar", "activar"} {
		if _, err := Resolve(device.NewTopics("esp32"), cmd); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnknownCommand", cmd, err)
		}
	}
}

func TestSender_Send(t *testing.T) {
	pub := &fakePublisher{connected: true}
	s := NewSender(device.NewTopics("esp32"), pub)

	ctrl, err := s.Send(context.Background(), "activarAlarma")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(pub.sent) != 1 || pub.sent[0] != ctrl {
		t.Errorf("published %v, want [%+v]", pub.sent, ctrl)
	}
}

func TestSender_Errors(t *testing.T) {
	ctx := context.Background()
	topics := device.NewTopics("esp32")

	pub := &fakePublisher{connected: true}
	if _, err := NewSender(topics, pub).Send(ctx, "volar"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Send(unknown) error = %v, want ErrUnknownCommand", err)
	}
	if len(pub.sent) != 0 {
		t.Error("unknown command reached the publisher")
	}

	if _, err := NewSender(topics, &fakePublisher{}).Send(ctx, "abrir"); !errors.Is(err, ErrTransportUnavailable) {
		t.Errorf("Send(disconnected) error = %v, want ErrTransportUnavailable", err)
	}
	if _, err := NewSender(topics, nil).Send(ctx, "abrir"); !errors.Is(err, ErrTransportUnavailable) {
		t.Errorf("Send(nil publisher) error = %v, want ErrTransportUnavailable", err)
	}

	failing := &fakePublisher{connected: true, err: errors.New("broker gone")}
	if _, err := NewSender(topics, failing).Send(ctx, "cerrar"); err == nil {
		t.Error("Send() should surface publish errors")
	}
}
