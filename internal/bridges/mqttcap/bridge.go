package mqttcap

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/domotic-core/internal/capability"
	"github.com/nerrad567/domotic-core/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
// This allows mocking in tests.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a Bridge.
type Options struct {
	// DeviceID scopes the command and state topics of the hardware.
	DeviceID string

	// Keys restricts SET to the listed keys and is reported by OPTIONS.
	// Empty means any key is accepted.
	Keys []string

	// QoS for command publishes and state subscriptions.
	QoS byte

	Logger Logger
}

// Bridge is a capability.Handler backed by MQTT-connected hardware.
//
// SET publishes the value to domotic/command/<device>/<key>. GET answers
// with the last value the hardware reported on domotic/state/<device>/<key>,
// or "unknown" before the first report.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	client   MQTTClient
	deviceID string
	keys     []string
	qos      byte
	logger   Logger

	mu     sync.RWMutex
	values map[string]string
}

var _ capability.Handler = (*Bridge)(nil)

// New creates a Bridge. Call Start to begin tracking hardware state.
func New(client MQTTClient, opts Options) (*Bridge, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	if opts.DeviceID == "" {
		return nil, ErrNoDeviceID
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		client:   client,
		deviceID: opts.DeviceID,
		keys:     slices.Clone(opts.Keys),
		qos:      opts.QoS,
		logger:   logger,
		values:   make(map[string]string),
	}, nil
}

// Start subscribes to the hardware's state topics.
func (b *Bridge) Start(_ context.Context) error {
	topic := mqtt.Topics{}.DeviceStates(b.deviceID)
	if err := b.client.Subscribe(topic, b.qos, b.handleState); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	b.logger.Info("capability bridge started", "device_id", b.deviceID, "topic", topic)
	return nil
}

// Stop unsubscribes from the state topics.
func (b *Bridge) Stop() error {
	topic := mqtt.Topics{}.DeviceStates(b.deviceID)
	if err := b.client.Unsubscribe(topic); err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", topic, err)
	}
	return nil
}

// handleState records a value reported by the hardware.
func (b *Bridge) handleState(topic string, payload []byte) error {
	key, ok := mqtt.Topics{}.KeyFromStateTopic(b.deviceID, topic)
	if !ok {
		return fmt.Errorf("unexpected state topic %q", topic)
	}
	value := strings.TrimSpace(string(payload))

	b.mu.Lock()
	b.values[key] = value
	b.mu.Unlock()

	b.logger.Debug("hardware state received", "key", key, "value", value)
	return nil
}

// Get implements capability.Getter.
func (b *Bridge) Get(_ context.Context, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.values[key]; ok {
		return v
	}
	return capability.UnknownValue
}

// Set implements capability.Setter. It reports false for an undeclared key
// or when the command cannot be published.
func (b *Bridge) Set(_ context.Context, key, value string) bool {
	if len(b.keys) > 0 && !slices.Contains(b.keys, key) {
		b.logger.Debug("rejected undeclared key", "key", key)
		return false
	}

	topic := mqtt.Topics{}.Command(b.deviceID, key)
	if err := b.client.Publish(topic, []byte(value), b.qos, false); err != nil {
		b.logger.Warn("publishing command failed", "topic", topic, "error", err)
		return false
	}
	return true
}

// Options implements capability.Optioner: the declared keys, or the keys
// reported so far when none were declared.
func (b *Bridge) Options() string {
	if len(b.keys) > 0 {
		return strings.Join(b.keys, " ")
	}

	b.mu.RLock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	sort.Strings(keys)
	return strings.Join(keys, " ")
}
