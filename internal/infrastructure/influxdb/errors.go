package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned by Connect when the server does not
	// answer its ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrUnhealthy is returned by HealthCheck when the ping fails.
	ErrUnhealthy = errors.New("influxdb: server unhealthy")

	// ErrWriteFailed wraps every asynchronous batch failure passed to the
	// SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: batch write failed")
)
