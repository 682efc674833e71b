package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/domotic-core/internal/infrastructure/config"
)

const (
	connectTimeout  = 10 * time.Second
	ackTimeout      = 5 * time.Second
	quiesceMillis   = 500
	keepAlive       = 30 * time.Second
	maxQoS          = 2
	maxPayloadSize  = 64 << 10
	presenceQoS     = 1
	tlsMinVersion   = tls.VersionTLS12
	schemePlain     = "tcp"
	schemeEncrypted = "ssl"
)

// Presence states published on Topics.NodeStatus.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// Reasons attached to an offline presence.
const (
	ReasonShutdown = "shutdown"
	ReasonLost     = "connection_lost"
)

// Presence is the retained JSON document on domotic/node/<id>/status.
// The broker publishes the ReasonLost variant as the will.
type Presence struct {
	Node   string    `json:"node"`
	State  string    `json:"state"`
	Reason string    `json:"reason,omitempty"`
	Since  time.Time `json:"since"`
}

func presencePayload(node, state, reason string) []byte {
	b, err := json.Marshal(Presence{Node: node, State: state, Reason: reason, Since: time.Now().UTC()})
	if err != nil {
		return nil
	}
	return b
}

// brokerURL returns the paho broker URL for cfg.
func brokerURL(cfg config.MQTTBrokerConfig) string {
	scheme := schemePlain
	if cfg.TLS {
		scheme = schemeEncrypted
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}

// sessionOptions builds paho options for a node session: a clean session,
// automatic reconnect with the configured backoff bounds, and a retained
// offline will on the node's status topic.
func sessionOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	node := cfg.Broker.ClientID

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(node).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetBinaryWill(Topics{}.NodeStatus(node), presencePayload(node, PresenceOffline, ReasonLost), presenceQoS, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}
