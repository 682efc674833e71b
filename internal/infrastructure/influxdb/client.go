package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/domotic-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	// Used when the config leaves batching at zero.
	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client batches node metrics into one InfluxDB bucket.
//
// Writes never block the command path: points are buffered by the
// non-blocking write API and flushed by size or interval. Batch failures
// surface through SetOnError.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	influx influxdb2.Client
	writer api.WriteAPI

	mu      sync.RWMutex
	open    bool
	onError func(err error)
}

// writeOptions maps the batching settings in cfg onto client options.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) //nolint:gosec // positive by construction
}

// Connect pings the server and opens a batched writer for cfg.Bucket.
//
// Parameters:
//   - ctx: bounds the ping, capped at 10 seconds
//   - cfg: influxdb section of config.yaml
//
// Returns:
//   - *Client: open client
//   - error: ErrDisabled, or ErrConnectionFailed (wrapped) if the ping fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if ok, err := influx.Ping(pingCtx); err != nil || !ok {
		influx.Close()
		if err == nil {
			err = ErrUnhealthy
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		influx: influx,
		writer: influx.WriteAPI(cfg.Org, cfg.Bucket),
		open:   true,
	}
	go c.forwardErrors()
	return c, nil
}

// forwardErrors passes batch failures to the SetOnError callback until
// the write API's error channel closes.
func (c *Client) forwardErrors() {
	for err := range c.writer.Errors() {
		c.mu.RLock()
		hook := c.onError
		c.mu.RUnlock()
		if hook != nil {
			hook(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetOnError registers the callback for asynchronous batch failures.
func (c *Client) SetOnError(hook func(err error)) {
	c.mu.Lock()
	c.onError = hook
	c.mu.Unlock()
}

// IsConnected reports whether the client is open. It does not ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	ok, err := c.influx.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if !ok {
		return ErrUnhealthy
	}
	return nil
}

// Flush sends buffered points now. No-op once closed.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writer.Flush()
	}
}

// Close flushes pending points and releases the client. Safe on a zero
// Client and idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	if !wasOpen {
		return nil
	}
	c.writer.Flush()
	c.influx.Close()
	return nil
}

// write hands a point to the batcher if the client is open.
func (c *Client) write(p *write.Point) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.open {
		c.writer.WritePoint(p)
	}
}
