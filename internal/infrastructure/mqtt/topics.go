package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every domotic topic.
const TopicPrefix = "domotic"

// Topics provides builders for domotic MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Command("esp-kitchen", "led") // domotic/command/esp-kitchen/led
//	topics.State("esp-kitchen", "led")   // domotic/state/esp-kitchen/led
type Topics struct{}

// Command returns the topic a SET is forwarded to for a hardware device.
//
// Example: domotic/command/esp-kitchen/led
func (Topics) Command(deviceID, key string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceID, key)
}

// State returns the topic a hardware device reports a key's value on.
//
// Example: domotic/state/esp-kitchen/temp
func (Topics) State(deviceID, key string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, deviceID, key)
}

// DeviceStates returns a pattern matching every state key of one device.
//
// Pattern: domotic/state/esp-kitchen/+
func (Topics) DeviceStates(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, deviceID)
}

// Event returns the topic handled commands are published on.
//
// Example: domotic/event/SET
func (Topics) Event(verb string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, verb)
}

// AllEvents returns a pattern matching every command event.
//
// Pattern: domotic/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// NodeDirectory returns the retained directory snapshot topic of a node.
//
// Example: domotic/node/kitchen/directory
func (Topics) NodeDirectory(nodeID string) string {
	return fmt.Sprintf("%s/node/%s/directory", TopicPrefix, nodeID)
}

// NodeStatus returns the retained online/offline topic of a node.
//
// Example: domotic/node/domotic-node/status
func (Topics) NodeStatus(nodeID string) string {
	return fmt.Sprintf("%s/node/%s/status", TopicPrefix, nodeID)
}

// AllTopics returns a pattern matching all domotic topics.
//
// Pattern: domotic/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// KeyFromStateTopic extracts the key from a state topic of deviceID.
// It returns false if the topic is not domotic/state/<deviceID>/<key>.
func (t Topics) KeyFromStateTopic(deviceID, topic string) (string, bool) {
	key, ok := strings.CutPrefix(topic, t.State(deviceID, ""))
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}
