// Package capability defines the local GET/SET/OPTIONS behaviour of a node.
//
// The dispatcher only depends on the small Getter, Setter and Optioner
// interfaces. Embedding applications plug in their own hardware logic;
// this package ships two implementations:
//
//   - Unimplemented: fixed "not implemented" answers, SET always rejected
//   - Memory: an in-process key/value store, useful for tests and for
//     nodes that only mirror state
//
// The MQTT-backed handler lives in internal/bridges/mqttcap.
package capability
