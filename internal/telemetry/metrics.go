package telemetry

import (
	"context"
	"strings"

	"github.com/nerrad567/domotic-core/internal/dispatch"
	"github.com/nerrad567/domotic-core/internal/infrastructure/influxdb"
)

// MetricWriter is the subset of the InfluxDB client used by Metrics.
// Satisfied by *influxdb.Client.
type MetricWriter interface {
	WriteCommandMetric(m influxdb.CommandMetric)
	WriteDirectorySize(node string, devices int)
}

// NameSource reports the node's current name. Satisfied by *node.Identity.
type NameSource interface {
	Name() string
}

// Sizer reports the number of directory entries. Satisfied by
// *directory.Directory.
type Sizer interface {
	Len() int
}

// Metrics records command latency and relay counts in InfluxDB.
type Metrics struct {
	writer MetricWriter
	names  NameSource
	dir    Sizer
}

// NewMetrics creates a Metrics observer. names and dir may be nil, in
// which case the node tag and directory points are omitted.
func NewMetrics(writer MetricWriter, names NameSource, dir Sizer) *Metrics {
	return &Metrics{writer: writer, names: names, dir: dir}
}

// Observe implements dispatch.Observer.
func (m *Metrics) Observe(_ context.Context, rec dispatch.Record) {
	if m.writer == nil || rec.Verb == "" {
		return
	}

	nodeName := ""
	if m.names != nil {
		nodeName = m.names.Name()
	}

	m.writer.WriteCommandMetric(influxdb.CommandMetric{
		Node:     nodeName,
		Verb:     rec.Verb,
		Status:   rec.Status,
		Source:   transportOf(rec.Source),
		Duration: rec.Duration,
		Relays:   rec.Relays,
		At:       rec.At,
	})

	if rec.DirectoryChanged && m.dir != nil {
		m.writer.WriteDirectorySize(nodeName, m.dir.Len())
	}
}

// transportOf reduces a record source such as "udp:10.0.0.7:5000" to "udp".
func transportOf(source string) string {
	transport, _, _ := strings.Cut(source, ":")
	return transport
}
