package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for a domotic node.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node         NodeConfig         `yaml:"node"`
	Relay        RelayConfig        `yaml:"relay"`
	Compat       CompatConfig       `yaml:"compat"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Database     DatabaseConfig     `yaml:"database"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	API          APIConfig          `yaml:"api"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// NodeConfig describes this node's identity and command listener.
type NodeConfig struct {
	// Name is the initial identity name. Empty means "not set" until a
	// NAME command arrives.
	Name string `yaml:"name"`

	// Address is the IP announced to peers (WHO, reciprocal ADD).
	// Empty means detect from the first non-loopback interface.
	Address string `yaml:"address"`

	// Broadcast is the broadcast address shown by WHO.
	// Empty means derive it from the detected interface.
	Broadcast string `yaml:"broadcast"`

	// ListenHost is the local address the command listener binds to.
	ListenHost string `yaml:"listen_host"`

	// Port is the command port. Peers are contacted on the same port.
	Port int `yaml:"port"`

	// MaxDevices bounds the directory.
	MaxDevices int `yaml:"max_devices"`

	// MaxNameLength bounds device and node names.
	MaxNameLength int `yaml:"max_name_length"`
}

// RelayConfig contains settings for relayed (remote) invocations.
type RelayConfig struct {
	// Timeout is how long one relay waits for its reply.
	Timeout time.Duration `yaml:"timeout"`

	// Correlate tags outbound requests with an id and ignores replies that
	// do not echo it. Only enable when every peer runs this implementation.
	Correlate bool `yaml:"correlate"`

	// StrictSource drops replies that do not come from the target address.
	// Disable for multi-homed peers, ideally together with Correlate.
	StrictSource bool `yaml:"strict_source"`
}

// CompatConfig toggles reproduction of legacy reply bodies.
type CompatConfig struct {
	// LegacyReplies reproduces the reply bodies of older firmware:
	// "200 Name already in use" on ADD conflicts and bare bodies (no status
	// prefix) for NAME, WHO and DEL.
	LegacyReplies bool `yaml:"legacy_replies"`
}

// CapabilitiesConfig selects the local GET/SET/OPTIONS implementation.
type CapabilitiesConfig struct {
	// Driver is one of "none", "memory" or "mqtt".
	Driver string `yaml:"driver"`

	// DeviceID scopes the MQTT command/state topics for this node.
	DeviceID string `yaml:"device_id"`

	// Keys declares the keys this node exposes (reported by OPTIONS).
	Keys []string `yaml:"keys"`

	// Initial seeds the memory driver.
	Initial map[string]string `yaml:"initial"`
}

// DatabaseConfig contains SQLite settings for the command audit log.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the admin HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Capability drivers.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverMQTT   = "mqtt"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DOMOTIC_SECTION_KEY
// For example: DOMOTIC_NODE_NAME, DOMOTIC_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the reference protocol values: port 9999,
// 16 directory slots, 50 character names and a 5 second relay timeout.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			ListenHost:    "0.0.0.0",
			Port:          9999,
			MaxDevices:    16,
			MaxNameLength: 50,
		},
		Relay: RelayConfig{
			Timeout:      5 * time.Second,
			StrictSource: true,
		},
		Capabilities: CapabilitiesConfig{
			Driver: DriverNone,
		},
		Database: DatabaseConfig{
			Path:        "./data/domotic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "domotic-node",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DOMOTIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Node
	if v := os.Getenv("DOMOTIC_NODE_NAME"); v != "" {
		cfg.Node.Name = v
	}
	if v := os.Getenv("DOMOTIC_NODE_ADDRESS"); v != "" {
		cfg.Node.Address = v
	}
	if v := os.Getenv("DOMOTIC_NODE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Node.Port = port
		}
	}

	// Database
	if v := os.Getenv("DOMOTIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DOMOTIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOMOTIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOMOTIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("DOMOTIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.Port < 1 || c.Node.Port > 65535 {
		errs = append(errs, "node.port must be between 1 and 65535")
	}
	if c.Node.MaxDevices < 1 {
		errs = append(errs, "node.max_devices must be at least 1")
	}
	if c.Node.MaxNameLength < 1 {
		errs = append(errs, "node.max_name_length must be at least 1")
	}
	if len(c.Node.Name) > c.Node.MaxNameLength {
		errs = append(errs, "node.name exceeds node.max_name_length")
	}
	if strings.ContainsAny(c.Node.Name, " \t\r\n") {
		errs = append(errs, "node.name must not contain whitespace")
	}

	if c.Relay.Timeout <= 0 {
		errs = append(errs, "relay.timeout must be positive")
	}

	switch c.Capabilities.Driver {
	case DriverNone, DriverMemory:
	case DriverMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "capabilities.driver mqtt requires mqtt.enabled")
		}
		if c.Capabilities.DeviceID == "" {
			errs = append(errs, "capabilities.device_id is required for the mqtt driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("capabilities.driver %q is not one of none, memory, mqtt", c.Capabilities.Driver))
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ListenAddr returns the host:port the command listener binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Node.ListenHost, c.Node.Port)
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
