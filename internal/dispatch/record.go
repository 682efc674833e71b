package dispatch

import (
	"context"
	"time"
)

// Record describes one handled command. It is passed to every Observer
// after the reply has been built.
type Record struct {
	// Verb is the first token, or empty for a blank datagram.
	Verb string

	// Target is the addressed device for SET, GET, ADD and DEL.
	Target string

	// Command is the normalized inbound text without any correlation tag.
	Command string

	// Response is the reply sent back, without any correlation tag.
	Response string

	// Status is the leading status code of Response, 0 if it has none.
	Status int

	// Relays counts the remote invocations made while handling the command.
	Relays int

	// DirectoryChanged is true when ADD or DEL modified the directory.
	DirectoryChanged bool

	// Source identifies the caller, for example "udp:10.0.0.7:51234" or "api".
	Source string

	At       time.Time
	Duration time.Duration
}

// Observer receives a Record for every handled command.
//
// Observe runs on the dispatch path after the reply is computed and before
// the next command is handled, so implementations must not block for long.
type Observer interface {
	Observe(ctx context.Context, rec Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, rec Record)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, rec Record) { f(ctx, rec) }
