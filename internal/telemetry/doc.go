// Package telemetry turns handled commands into external signals.
//
// Two dispatch observers are provided:
//
//   - Metrics writes one InfluxDB point per command and the directory size
//     after every ADD or DEL.
//   - Events publishes each command as JSON on the MQTT event topic and a
//     retained directory snapshot whenever the directory changes.
//
// Both are fire-and-forget: failures are logged and never alter the reply
// that was already sent to the caller.
//
// # Usage
//
//	metrics := telemetry.NewMetrics(influxClient, identity, dir)
//	events := telemetry.NewEvents(mqttClient, "kitchen", dir, telemetry.WithEventLogger(log))
//	d := dispatch.New(identity, dir, relay, cfg,
//	    dispatch.WithObserver(metrics),
//	    dispatch.WithObserver(events),
//	)
package telemetry
