// Package mqttcap bridges a node's local GET/SET/OPTIONS capability to
// hardware reachable over MQTT (ESP32 firmware, Tasmota and similar).
//
//	SET kitchen led on  ->  publish "on" to domotic/command/<device>/led
//	hardware reports    ->  domotic/state/<device>/led = "on"
//	GET kitchen led     ->  "200 OK on"
package mqttcap
