// Domotic node daemon.
//
// domoticd answers the plain-text UDP node protocol (NAME, WHO, SET, GET,
// OPTIONS, PING, ADD, DEL, LIST), keeps the in-memory device directory, and
// relays commands to peers. Optional integrations, each enabled in
// config.yaml: MQTT (capability bridge and event bus), InfluxDB (command
// metrics), SQLite (command log) and an admin HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/domotic-core/migrations"

	"github.com/nerrad567/domotic-core/internal/api"
	"github.com/nerrad567/domotic-core/internal/audit"
	"github.com/nerrad567/domotic-core/internal/bridges/mqttcap"
	"github.com/nerrad567/domotic-core/internal/capability"
	"github.com/nerrad567/domotic-core/internal/directory"
	"github.com/nerrad567/domotic-core/internal/dispatch"
	"github.com/nerrad567/domotic-core/internal/infrastructure/config"
	"github.com/nerrad567/domotic-core/internal/infrastructure/database"
	"github.com/nerrad567/domotic-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/domotic-core/internal/infrastructure/logging"
	"github.com/nerrad567/domotic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/domotic-core/internal/invoke"
	"github.com/nerrad567/domotic-core/internal/node"
	"github.com/nerrad567/domotic-core/internal/server"
	"github.com/nerrad567/domotic-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting domotic node",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	identity, err := node.FromConfig(cfg.Node)
	if err != nil {
		return fmt.Errorf("resolving node identity: %w", err)
	}
	dir := directory.New(cfg.Node.MaxDevices, cfg.Node.MaxNameLength)
	log.Info("node identity",
		"name", identity.Name(),
		"address", identity.Addr().String(),
		"broadcast", identity.Broadcast().String(),
	)

	checks := map[string]api.HealthChecker{}
	var observers []dispatch.Option

	// Command log (optional)
	var auditRepo audit.Repository
	if cfg.Database.Enabled {
		db, dbErr := database.Open(ctx, cfg.Database)
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("command log ready", "path", cfg.Database.Path)

		repo := audit.NewSQLiteRepository(db.DB)
		recorder := audit.NewRecorder(repo, audit.DefaultQueueSize, log.Component("audit"))
		recCtx, stopRecorder := context.WithCancel(context.Background())
		recorder.Start(recCtx)
		defer func() {
			stopRecorder()
			recorder.Wait()
		}()

		auditRepo = repo
		checks["database"] = db
		observers = append(observers, dispatch.WithObserver(recorder))
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		checks["mqtt"] = mqttClient
		observers = append(observers, dispatch.WithObserver(telemetry.NewEvents(
			mqttClient, mqttClient.Node(), dir,
			telemetry.WithEventLogger(log.Component("events")),
		)))
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		checks["influxdb"] = influxClient
		observers = append(observers, dispatch.WithObserver(telemetry.NewMetrics(influxClient, identity, dir)))
	}

	// Local capabilities
	caps, stopCaps, err := buildCapabilities(ctx, cfg, mqttClient, log)
	if err != nil {
		return fmt.Errorf("starting capabilities: %w", err)
	}
	defer stopCaps()

	relay := invoke.NewClient(
		invoke.WithCorrelation(cfg.Relay.Correlate),
		invoke.WithSourceCheck(cfg.Relay.StrictSource),
		invoke.WithLogger(log.Component("invoke")),
	)

	opts := append([]dispatch.Option{dispatch.WithLogger(log.Component("dispatch"))}, observers...)
	if caps != nil {
		opts = append(opts, dispatch.WithHandler(caps))
	}
	dispatcher := dispatch.New(identity, dir, relay, dispatch.Config{
		PeerPort:      cfg.Node.Port,
		AdvertisePort: cfg.Node.Port,
		Timeout:       cfg.Relay.Timeout,
		LegacyReplies: cfg.Compat.LegacyReplies,
	}, opts...)

	// UDP command listener
	udp, err := server.New(cfg.ListenAddr(), dispatcher, log)
	if err != nil {
		return fmt.Errorf("creating command listener: %w", err)
	}
	if err := udp.Start(ctx); err != nil {
		return fmt.Errorf("starting command listener: %w", err)
	}
	defer func() {
		if closeErr := udp.Close(); closeErr != nil {
			log.Error("error closing command listener", "error", closeErr)
		}
	}()
	checks["udp"] = udp
	log.Info("command listener ready", "address", udp.LocalAddr().String())

	// Admin API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log,
			Dispatcher: dispatcher,
			AuditRepo:  auditRepo,
			Checks:     checks,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// buildCapabilities returns the local GET/SET/OPTIONS driver selected by
// capabilities.driver, and a function releasing it. A nil handler means
// no local capabilities (replies "500 No callback function for ...").
func buildCapabilities(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (capability.Handler, func(), error) {
	noop := func() {}

	switch cfg.Capabilities.Driver {
	case config.DriverMemory:
		log.Info("capabilities: in-memory", "keys", cfg.Capabilities.Keys)
		return capability.NewMemory(cfg.Capabilities.Keys, cfg.Capabilities.Initial), noop, nil

	case config.DriverMQTT:
		if mqttClient == nil {
			return nil, noop, fmt.Errorf("mqtt capability driver requires an MQTT connection")
		}
		bridge, err := mqttcap.New(mqttClient, mqttcap.Options{
			DeviceID: cfg.Capabilities.DeviceID,
			Keys:     cfg.Capabilities.Keys,
			QoS:      byte(cfg.MQTT.QoS), //nolint:gosec // validated 0-2
			Logger:   log.Component("mqttcap"),
		})
		if err != nil {
			return nil, noop, err
		}
		if err := bridge.Start(ctx); err != nil {
			return nil, noop, err
		}
		log.Info("capabilities: MQTT bridge", "device_id", cfg.Capabilities.DeviceID)
		return bridge, func() {
			if err := bridge.Stop(); err != nil {
				log.Warn("error stopping MQTT capability bridge", "error", err)
			}
		}, nil

	default:
		log.Info("capabilities: none")
		return nil, noop, nil
	}
}

func getConfigPath() string {
	if path := os.Getenv("DOMOTIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every registered component check once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
