package mqtt

import "errors"

// Errors returned by the MQTT client. Broker errors are wrapped with %w.
var (
	// ErrNotConnected is returned while the broker connection is down.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed is returned by Connect when the broker cannot be reached.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed is returned when the broker does not accept a publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe or unsubscribe is not acknowledged.
	ErrSubscribeFailed = errors.New("mqtt: subscription change failed")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
