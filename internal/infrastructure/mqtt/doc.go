// Package mqtt provides MQTT client connectivity for domotic nodes.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions that are restored after a reconnect
//   - A retained Presence document per node, with the offline variant
//     registered as the broker will
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is optional for a node. When enabled it carries two flows:
//
//	hardware (ESP32, Tasmota) <-> broker <-> mqttcap bridge   local GET/SET
//	dispatcher -> telemetry.Events -> broker -> dashboards    command events
//
// # Topics
//
//	domotic/command/<device>/<key>   SET forwarded to hardware
//	domotic/state/<device>/<key>     values reported by hardware
//	domotic/event/<verb>             handled commands
//	domotic/node/<node>/directory    retained directory snapshot
//	domotic/node/<node>/status       retained Presence (online, offline)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.DeviceStates("esp-kitchen"), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
