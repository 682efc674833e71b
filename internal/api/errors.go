package api

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every error the API produces itself. Protocol
// failures on resource endpoints answer with a commandResponse instead,
// so the node's reply line is never lost.
type Error struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeRelayFailed    = "relay_failed"
	ErrCodeRelayTimeout   = "relay_timeout"
	ErrCodeUnavailable    = "unavailable"
)

var errorCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusMethodNotAllowed:    ErrCodeMethodNotAllow,
	http.StatusConflict:            ErrCodeConflict,
	http.StatusInternalServerError: ErrCodeInternal,
	http.StatusBadGateway:          ErrCodeRelayFailed,
	http.StatusGatewayTimeout:      ErrCodeRelayTimeout,
	http.StatusServiceUnavailable:  ErrCodeUnavailable,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // client may have gone away
		json.NewEncoder(w).Encode(v)
	}
}

// fail writes an Error for status, tagged with the request ID.
func fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	code, ok := errorCodes[status]
	if !ok {
		code = ErrCodeInternal
	}
	writeJSON(w, status, Error{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: requestIDFrom(r.Context()),
	})
}

// replyStatus maps a protocol reply status to the HTTP status of a
// resource endpoint. success is returned for 2xx and status-less replies.
//
//	404       -> 404
//	501       -> 504 (relay timed out)
//	other 5xx -> 502
//	other     -> 400
func replyStatus(status int, success int) int {
	switch {
	case status == 0, status >= 200 && status < 300:
		return success
	case status == 404:
		return http.StatusNotFound
	case status == 501:
		return http.StatusGatewayTimeout
	case status >= 500:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
