package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/domotic-core/internal/infrastructure/config"
)

// Logger is the subset of *logging.Logger the client writes to.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// MessageHandler receives one message. paho runs it on its own goroutine.
// A returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// route is a subscription replayed after every reconnect.
type route struct {
	qos     byte
	handler MessageHandler
}

// Client is a broker session for one node.
//
// On every (re)connect it restores its subscriptions and publishes a retained
// online presence. Close replaces it with a graceful offline presence; a
// dropped connection leaves the broker's will in place instead.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	paho pahomqtt.Client
	node string

	mu           sync.RWMutex
	up           bool
	routes       map[string]route
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Connect opens a session with the broker described by cfg. The broker
// client ID doubles as the node ID in presence and event topics.
//
// Returns:
//   - *Client: connected session
//   - error: ErrConnectionFailed (wrapped) if the broker does not accept the
//     connection within the connect timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		node:   cfg.Broker.ClientID,
		routes: make(map[string]route),
		logger: noopLogger{},
	}

	opts := sessionOptions(cfg).
		SetOnConnectHandler(func(pahomqtt.Client) { c.connected() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) }).
		SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
			c.log().Warn("reconnecting to MQTT broker", "broker", brokerURL(cfg.Broker))
		})

	c.paho = pahomqtt.NewClient(opts)
	if err := wait(c.paho.Connect(), connectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The connect handler runs asynchronously; mark the session up now so
	// callers can publish immediately.
	c.mu.Lock()
	c.up = true
	c.mu.Unlock()
	return c, nil
}

// wait blocks on a paho token for up to d and maps failure to sentinel.
func wait(tok pahomqtt.Token, d time.Duration, sentinel error) error {
	if !tok.WaitTimeout(d) {
		return fmt.Errorf("%w: no acknowledgement after %v", sentinel, d)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

func (c *Client) connected() {
	c.mu.Lock()
	c.up = true
	routes := make(map[string]route, len(c.routes))
	for topic, r := range c.routes {
		routes[topic] = r
	}
	hook := c.onConnect
	c.mu.Unlock()

	for topic, r := range routes {
		c.paho.Subscribe(topic, r.qos, c.deliver(r.handler))
	}
	c.paho.Publish(Topics{}.NodeStatus(c.node), presenceQoS, true, presencePayload(c.node, PresenceOnline, ""))

	if hook != nil {
		hook()
	}
}

func (c *Client) lost(err error) {
	c.mu.Lock()
	c.up = false
	hook := c.onDisconnect
	c.mu.Unlock()

	if hook != nil {
		hook(err)
	}
}

// deliver adapts a MessageHandler to paho, recovering panics.
func (c *Client) deliver(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("MQTT handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("MQTT handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}

// Node returns the node ID used in presence topics.
func (c *Client) Node() string {
	return c.node
}

// IsConnected reports whether the session is currently up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	up := c.up
	c.mu.RUnlock()
	return up && c.paho != nil && c.paho.IsConnected()
}

// HealthCheck returns ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close publishes an offline presence and disconnects. Safe on a zero Client.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		tok := c.paho.Publish(Topics{}.NodeStatus(c.node), presenceQoS, true,
			presencePayload(c.node, PresenceOffline, ReasonShutdown))
		tok.WaitTimeout(ackTimeout)
	}
	c.paho.Disconnect(quiesceMillis)

	c.mu.Lock()
	c.up = false
	c.mu.Unlock()
	return nil
}

// SetOnConnect registers a hook run after every (re)connect.
func (c *Client) SetOnConnect(hook func()) {
	c.mu.Lock()
	c.onConnect = hook
	c.mu.Unlock()
}

// SetOnDisconnect registers a hook run when the connection drops.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.mu.Lock()
	c.onDisconnect = hook
	c.mu.Unlock()
}

// SetLogger sets where handler failures and reconnects are logged.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}
