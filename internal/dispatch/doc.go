// Package dispatch implements the node's command dispatcher.
//
// A Dispatcher parses one inbound datagram into a verb and arguments,
// validates arity and answers with a single status line:
//
//	NAME <name>                  set this node's name
//	WHO                          identity and directory dump
//	SET <target> <key> <value>   local capability, relay or fan-out
//	GET <target> <key>           local capability, relay or fan-out
//	OPTIONS                      local options text
//	PING                         liveness
//	ADD <name> <address> [device] register a peer (reciprocal unless "device")
//	DEL <name>                   forget a peer
//	LIST                         directory listing
//
// # Routing
//
// SET and GET addressed to this node's own name go to the local capability.
// A name found in the directory is relayed to that device and its reply
// returned verbatim. Any other name is relayed to every directory entry in
// order until one answers with a 200 status; if none does the reply is
// "404 Not Found".
//
// # Concurrency
//
// Handle is safe to call from several goroutines but processes one command
// at a time, nested relays included.
package dispatch
