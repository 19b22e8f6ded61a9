package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/ventana-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the startup ping when the caller's context has no
	// earlier deadline.
	connectTimeout = 10 * time.Second

	// healthTimeout bounds a single HealthCheck ping.
	healthTimeout = 5 * time.Second

	// Batching used when the configuration leaves it unset.
	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client records device telemetry through the InfluxDB v2 write API.
//
// Points are queued in memory and sent in batches, either when the batch
// fills or when the flush interval elapses. Batch failures never reach the
// caller of WriteDeviceState; they are reported through SetOnError.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Close, Flush and IsConnected are safe on a nil *Client.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	mu        sync.RWMutex
	connected bool
	onError   func(err error)
}

// Connect opens a telemetry client for the configured bucket.
//
// It performs the following setup:
//  1. Resolves batch size and flush interval, applying fallbacks
//  2. Creates the client with token authentication
//  3. Pings the server, bounded by ctx and a 10s ceiling
//  4. Starts the batched write API and forwards its errors to SetOnError
//
// Parameters:
//   - ctx: Bounds the startup ping only; the client outlives it
//   - cfg: The influxdb section of config.yaml
//
// Returns:
//   - *Client: Client ready for WriteDeviceState
//   - error: ErrDisabled when influxdb.enabled is false, ErrConnectionFailed
//     when the server cannot be reached or reports unhealthy
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg)).
		SetFlushInterval(flushIntervalMillis(cfg))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := ping(pingCtx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		connected: true,
	}
	go c.forwardErrors(c.writeAPI.Errors())

	return c, nil
}

// batchSize returns the configured batch size, or the fallback when unset.
func batchSize(cfg config.InfluxDBConfig) uint {
	if cfg.BatchSize <= 0 {
		return fallbackBatchSize
	}
	return uint(cfg.BatchSize) // #nosec G115 -- checked positive above
}

// flushIntervalMillis converts the configured flush interval (seconds) to
// the milliseconds the client library expects.
func flushIntervalMillis(cfg config.InfluxDBConfig) uint {
	interval := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		interval = time.Duration(cfg.FlushInterval) * time.Second
	}
	return uint(interval.Milliseconds()) // #nosec G115 -- always positive
}

// ping reports an error unless the server answers healthy.
func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// forwardErrors delivers batch failures to the current callback until the
// write API is closed.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// Close marks the client disconnected, sends any queued points and
// releases the underlying client.
//
// Writes issued after Close return ErrNotConnected. Close always returns
// nil; the library's Close does not report errors.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if wasConnected {
		c.writeAPI.Flush()
		c.client.Close()
	}
	return nil
}

// HealthCheck actively pings the server.
//
// Parameters:
//   - ctx: Parent context; the ping is additionally capped at 5s
//
// Returns:
//   - error: ErrNotConnected after Close, otherwise nil when the server
//     answers healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := ping(checkCtx, c.client); err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the client is open.
//
// Note: this is the local state only. It turns false on Close, not when the
// server goes away; use HealthCheck to ping the server.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetOnError installs the callback for asynchronous batch failures.
// Passing nil discards them.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// Flush blocks until queued points have been sent. No-op after Close.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
