package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/nerrad567/ventana-core/internal/device"
)

// RedisSink caches the last snapshot per device and publishes it on the
// deviceUpdate channel, so processes outside the core can follow updates.
//
// Keys, with the configured prefix:
//
//	<prefix>device:<id>    last snapshot as JSON, no expiry
//	<prefix>deviceUpdate   pub/sub channel carrying the same JSON
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink creates a sink on an existing client.
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix}
}

// StateKey returns the key holding deviceID's last snapshot.
func (s *RedisSink) StateKey(deviceID string) string {
	return s.prefix + "device:" + deviceID
}

// Channel returns the pub/sub channel name.
func (s *RedisSink) Channel() string {
	return s.prefix + EventDeviceUpdate
}

// Publish stores and publishes state in one round trip.
func (s *RedisSink) Publish(ctx context.Context, state *device.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding device state: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.StateKey(state.DeviceID), payload, 0)
		pipe.Publish(ctx, s.Channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing device state to redis: %w", err)
	}
	return nil
}
