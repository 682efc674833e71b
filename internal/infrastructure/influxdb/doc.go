// Package influxdb provides InfluxDB connectivity for domotic nodes.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched metric writing and health monitoring.
//
// # Purpose
//
// A node records one point per handled command (verb, status, latency,
// relay count) and the size of its directory after every change, so relay
// latency and fan-out cost can be graphed per node.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCommandMetric(influxdb.CommandMetric{Node: "kitchen", Verb: "PING", Status: 200})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are non-blocking; async write errors are delivered to the
// callback set with SetOnError.
package influxdb
