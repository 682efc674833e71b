package node

import "errors"

var (
	// ErrBadRequest is returned by SetName for an empty or oversized name.
	ErrBadRequest = errors.New("node: bad request")

	// ErrNoAddress is returned when no usable interface address was found.
	ErrNoAddress = errors.New("node: no usable interface address")
)
