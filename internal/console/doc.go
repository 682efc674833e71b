// Package console implements the interactive operator console.
//
// A Session asks for the node address (unless one was given), then reads
// one command per line, sends it to the node and prints the single reply.
// Typing EXIT ends the session. When a receive timeout is configured and
// no reply arrives in time, "timed out" is printed and the session goes on.
package console
