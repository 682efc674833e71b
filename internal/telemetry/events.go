package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/domotic-core/internal/directory"
	"github.com/nerrad567/domotic-core/internal/dispatch"
	"github.com/nerrad567/domotic-core/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client used by Events.
// Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Lister returns a snapshot of the directory. Satisfied by
// *directory.Directory.
type Lister interface {
	List() []directory.Device
}

// Logger is the logging interface used by Events.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// CommandEvent is the JSON payload published for every handled command.
type CommandEvent struct {
	Node       string    `json:"node"`
	Verb       string    `json:"verb"`
	Target     string    `json:"target,omitempty"`
	Command    string    `json:"command"`
	Response   string    `json:"response"`
	Status     int       `json:"status"`
	Relays     int       `json:"relays"`
	Source     string    `json:"source,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// DirectoryEntry is one element of the retained directory snapshot.
type DirectoryEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// DirectorySnapshot is the retained payload on the node directory topic.
type DirectorySnapshot struct {
	Node      string           `json:"node"`
	Devices   []DirectoryEntry `json:"devices"`
	Timestamp time.Time        `json:"timestamp"`
}

// Events publishes handled commands on the MQTT bus.
//
// nodeID scopes the retained directory topic and is normally the MQTT
// client ID, since the node's protocol name may change at runtime.
type Events struct {
	pub    Publisher
	nodeID string
	dir    Lister
	qos    byte
	logger Logger
}

// EventOption configures Events.
type EventOption func(*Events)

// WithEventLogger sets the logger for publish failures.
func WithEventLogger(l Logger) EventOption {
	return func(e *Events) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithQoS sets the QoS used for event publications (default 0).
func WithQoS(qos byte) EventOption {
	return func(e *Events) { e.qos = qos }
}

// NewEvents creates an Events observer.
func NewEvents(pub Publisher, nodeID string, dir Lister, opts ...EventOption) *Events {
	e := &Events{
		pub:    pub,
		nodeID: nodeID,
		dir:    dir,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observe implements dispatch.Observer.
func (e *Events) Observe(_ context.Context, rec dispatch.Record) {
	if e.pub == nil || rec.Verb == "" {
		return
	}

	topics := mqtt.Topics{}

	payload, err := json.Marshal(CommandEvent{
		Node:       e.nodeID,
		Verb:       rec.Verb,
		Target:     rec.Target,
		Command:    rec.Command,
		Response:   rec.Response,
		Status:     rec.Status,
		Relays:     rec.Relays,
		Source:     rec.Source,
		DurationMS: float64(rec.Duration.Microseconds()) / 1000,
		Timestamp:  rec.At.UTC(),
	})
	if err != nil {
		e.logger.Warn("encoding command event", "verb", rec.Verb, "error", err)
		return
	}
	if err := e.pub.Publish(topics.Event(rec.Verb), payload, e.qos, false); err != nil {
		e.logger.Warn("publishing command event", "verb", rec.Verb, "error", err)
	}

	if rec.DirectoryChanged && e.dir != nil {
		e.publishDirectory(rec.At)
	}
}

func (e *Events) publishDirectory(at time.Time) {
	devices := e.dir.List()
	entries := make([]DirectoryEntry, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, DirectoryEntry{Name: d.Name, Address: d.Address()})
	}

	payload, err := json.Marshal(DirectorySnapshot{
		Node:      e.nodeID,
		Devices:   entries,
		Timestamp: at.UTC(),
	})
	if err != nil {
		e.logger.Warn("encoding directory snapshot", "error", err)
		return
	}

	topic := mqtt.Topics{}.NodeDirectory(e.nodeID)
	if err := e.pub.Publish(topic, payload, e.qos, true); err != nil {
		e.logger.Warn("publishing directory snapshot", "topic", topic, "error", err)
		return
	}
	e.logger.Debug("directory snapshot published", "topic", topic, "devices", len(entries))
}
