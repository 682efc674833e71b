package invoke

import "errors"

// Domain errors for the invoke package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, invoke.ErrTimeout) {
//	    // reply "501 timeout"
//	}
var (
	// ErrTimeout is returned when no reply arrives before the deadline.
	ErrTimeout = errors.New("invoke: timeout waiting for reply")

	// ErrTransportUnavailable is returned when the local endpoint cannot be
	// allocated or the request cannot be sent.
	ErrTransportUnavailable = errors.New("invoke: transport unavailable")
)
