package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the node.
const (
	MeasurementCommands  = "domotic_commands"
	MeasurementDirectory = "domotic_directory"
)

// CommandMetric describes one handled command.
type CommandMetric struct {
	Node     string
	Verb     string
	Status   int
	Source   string
	Duration time.Duration
	Relays   int
	At       time.Time
}

// WriteCommandMetric records a handled command.
//
// Tags are node, verb, status and transport. The target device is not
// tagged.
//
// Example:
//
//	client.WriteCommandMetric(influxdb.CommandMetric{
//	    Node: "kitchen", Verb: "GET", Status: 200,
//	    Duration: 12 * time.Millisecond, Relays: 1,
//	})
func (c *Client) WriteCommandMetric(m CommandMetric) {
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}
	c.write(NewCommandPoint(m, at))
}

// NewCommandPoint builds the point written by WriteCommandMetric.
func NewCommandPoint(m CommandMetric, at time.Time) *write.Point {
	tags := map[string]string{
		"verb":   m.Verb,
		"status": strconv.Itoa(m.Status),
	}
	if m.Node != "" {
		tags["node"] = m.Node
	}
	if m.Source != "" {
		tags["transport"] = m.Source
	}

	return write.NewPoint(
		MeasurementCommands,
		tags,
		map[string]any{
			"duration_ms": float64(m.Duration.Microseconds()) / 1000,
			"relays":      m.Relays,
		},
		at,
	)
}

// NewDirectoryPoint builds the point written by WriteDirectorySize.
func NewDirectoryPoint(node string, devices int, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDirectory,
		map[string]string{"node": node},
		map[string]any{"devices": devices},
		at,
	)
}

// WriteDirectorySize records the number of known peers of a node.
func (c *Client) WriteDirectorySize(node string, devices int) {
	c.write(NewDirectoryPoint(node, devices, time.Now()))
}
