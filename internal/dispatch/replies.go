package dispatch

import (
	"strconv"
	"strings"
)

// Status lines sent back to callers.
const (
	ReplyOK               = "200 OK"
	ReplyNameNotSet       = "200 OK Name not set"
	ReplyBadRequest       = "400 Bad Request"
	ReplyMaxDevices       = "400 Max Devices Reached"
	ReplyNoDevices        = "400 No devices to remove"
	ReplyNameInUse        = "400 Name already in use"
	ReplyLegacyNameInUse  = "200 Name already in use"
	ReplyNotFound         = "404 Not Found"
	ReplyInternalError    = "500 Internal Server Error"
	ReplyAddFailed        = "500 Error adding device"
	ReplyRelayTimeout     = "501 timeout"
	replyNoCallbackFormat = "500 No callback function for %s method"
)

// Verbs understood by the dispatcher. Matching is exact and case-sensitive.
const (
	VerbName    = "NAME"
	VerbWho     = "WHO"
	VerbSet     = "SET"
	VerbGet     = "GET"
	VerbOptions = "OPTIONS"
	VerbPing    = "PING"
	VerbAdd     = "ADD"
	VerbDel     = "DEL"
	VerbList    = "LIST"
)

// reciprocalMarker is the optional fourth ADD token that suppresses the
// reciprocal registration.
const reciprocalMarker = "device"

// StatusOf extracts the three-digit status code at the start of a reply.
// It returns 0 for replies without one (OPTIONS, LIST and legacy bodies).
func StatusOf(reply string) int {
	if len(reply) < 3 {
		return 0
	}
	if len(reply) > 3 && reply[3] != ' ' {
		return 0
	}
	code, err := strconv.Atoi(reply[:3])
	if err != nil || code < 100 {
		return 0
	}
	return code
}

// IsSuccess reports whether a relayed reply counts as success for the
// broadcast fallback and the reciprocal ADD.
func IsSuccess(reply string) bool {
	return strings.HasPrefix(reply, "200")
}

// IsNameConflict reports whether reply is an ADD name collision, in
// either the corrected or the legacy 200 form.
func IsNameConflict(reply string) bool {
	return reply == ReplyNameInUse || reply == ReplyLegacyNameInUse
}

// normalize applies the inbound cleanup: CR and LF are removed, trailing
// NULs dropped and surrounding whitespace trimmed.
func normalize(raw string) string {
	s := strings.NewReplacer("\r", "", "\n", "").Replace(raw)
	s = strings.TrimRight(s, "\x00")
	return strings.TrimSpace(s)
}

// tokenize splits on single spaces. Runs of spaces produce no empty tokens.
func tokenize(s string) []string {
	parts := strings.Split(s, " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
