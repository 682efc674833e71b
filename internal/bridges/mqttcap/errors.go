package mqttcap

import "errors"

// Domain errors for the MQTT capability bridge.
var (
	// ErrNoDeviceID is returned by New when the hardware device id is empty.
	ErrNoDeviceID = errors.New("mqttcap: device id is required")

	// ErrNoClient is returned by New when no MQTT client is supplied.
	ErrNoClient = errors.New("mqttcap: mqtt client is required")
)
