package influxdb_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/domotic-core/internal/infrastructure/config"
	"github.com/nerrad567/domotic-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "domotic-dev-token",
		Org:           "domotic",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to InfluxDB or skips the test.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client, err := influxdb.Connect(ctx, testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		t.Cleanup(func() { _ = client.Close() })
		return client
	}
	client, err := influxdb.Connect(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := influxdb.Connect(ctx, cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose_Nil(t *testing.T) {
	client := &influxdb.Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
	if client.IsConnected() {
		t.Error("zero client reports connected")
	}
	client.Flush()
	client.WriteCommandMetric(influxdb.CommandMetric{Verb: "PING", Status: 200})
	client.WriteDirectorySize("kitchen", 1)
}

func TestNewCommandPoint(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	p := influxdb.NewCommandPoint(influxdb.CommandMetric{
		Node:     "kitchen",
		Verb:     "GET",
		Status:   501,
		Source:   "udp",
		Duration: 1500 * time.Microsecond,
		Relays:   3,
	}, at)

	line := write.PointToLineProtocol(p, time.Nanosecond)
	for _, want := range []string{
		"domotic_commands,",
		"node=kitchen",
		"status=501",
		"transport=udp",
		"verb=GET",
		"duration_ms=1.5",
		"relays=3i",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
}

func TestNewDirectoryPoint(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	line := strings.TrimSpace(write.PointToLineProtocol(influxdb.NewDirectoryPoint("kitchen", 4, at), time.Second))

	want := "domotic_directory,node=kitchen devices=4i " + strconv.FormatInt(at.Unix(), 10)
	if line != want {
		t.Errorf("line protocol = %q, want %q", line, want)
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteCommandMetric(t *testing.T) {
	client := connectOrSkip(t)

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.WriteCommandMetric(influxdb.CommandMetric{
		Node:     "test-node",
		Verb:     "SET",
		Status:   200,
		Duration: 4 * time.Millisecond,
		Relays:   1,
	})
	client.WriteDirectorySize("test-node", 2)
	client.Flush()

	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestClose(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
