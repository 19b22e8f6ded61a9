package mqtt

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// EmbeddedBroker is an in-process MQTT broker for development machines and
// single-box installs where the device talks straight to the service host.
// It accepts every client; put a real broker in front of anything exposed.
type EmbeddedBroker struct {
	server   *mochi.Server
	listener *listeners.TCP
}

// StartEmbeddedBroker binds a TCP listener on address (":1883",
// "127.0.0.1:0", ...) and starts serving.
func StartEmbeddedBroker(address string, logger *slog.Logger) (*EmbeddedBroker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       logger.With(slog.String("component", "mqtt-broker")),
	})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrokerStart, err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: address})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrokerStart, err)
	}

	if err := server.Serve(); err != nil {
		server.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrBrokerStart, err)
	}

	return &EmbeddedBroker{server: server, listener: tcp}, nil
}

// Addr returns the bound listener address, resolving port 0.
func (b *EmbeddedBroker) Addr() string {
	return b.listener.Address()
}

// HostPort splits Addr into the host and port a Client config expects.
// An unspecified host (":1883") resolves to loopback.
func (b *EmbeddedBroker) HostPort() (string, int, error) {
	host, portStr, err := net.SplitHostPort(b.Addr())
	if err != nil {
		return "", 0, fmt.Errorf("parsing broker address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parsing broker port: %w", err)
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return host, port, nil
}

// Close stops the listener and disconnects every client.
func (b *EmbeddedBroker) Close() error {
	return b.server.Close()
}
