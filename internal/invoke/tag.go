package invoke

import (
	"strings"

	"github.com/google/uuid"
)

// tagPrefix marks a correlation tag at the start of a datagram:
//
//	@1a2b3c4d GET lamp led
const tagPrefix = '@'

// NewTag returns a short random correlation id.
func NewTag() string {
	return uuid.NewString()[:8]
}

// Tag prefixes message with the correlation id.
func Tag(id, message string) string {
	return string(tagPrefix) + id + " " + message
}

// SplitTag separates a leading correlation tag from the payload.
// Untagged messages return an empty id and the message unchanged.
func SplitTag(message string) (id, rest string) {
	if len(message) < 2 || message[0] != tagPrefix {
		return "", message
	}
	end := strings.IndexByte(message, ' ')
	if end < 0 {
		return message[1:], ""
	}
	if end == 1 {
		return "", message
	}
	return message[1:end], message[end+1:]
}
