package directory

import "errors"

// Domain errors for the directory package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, directory.ErrNameInUse) {
//	    // reply "Name already in use"
//	}
var (
	// ErrCapacityExceeded is returned by Add when the directory is full.
	ErrCapacityExceeded = errors.New("directory: capacity exceeded")

	// ErrNameInUse is returned by Add when the name is already registered.
	ErrNameInUse = errors.New("directory: name already in use")

	// ErrNotFound is returned when no entry has the requested name.
	ErrNotFound = errors.New("directory: device not found")

	// ErrInvalidName is returned when a name is empty, too long or contains whitespace.
	ErrInvalidName = errors.New("directory: invalid name")

	// ErrInvalidAddress is returned when an address cannot be parsed.
	ErrInvalidAddress = errors.New("directory: invalid address")
)
