package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nerrad567/domotic-core/internal/dispatch"
)

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Command   string `json:"command"`
	Response  string `json:"response"`
	Status    int    `json:"status"`
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty"`
}

// handleCommand runs one protocol command through the dispatcher.
//
// The HTTP status is 200 whenever the command was handled; the protocol
// outcome is in the body ("status" and "response").
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		fail(w, r, http.StatusBadRequest, "command is required")
		return
	}

	writeJSON(w, http.StatusOK, s.run(r, req.Command))
}

// run hands cmd to the dispatcher and wraps the reply.
func (s *Server) run(r *http.Request, cmd string) commandResponse {
	reply := s.dispatcher.Handle(r.Context(), cmd, commandSource)
	return commandResponse{
		Command:   cmd,
		Response:  reply,
		Status:    dispatch.StatusOf(reply),
		Success:   dispatch.IsSuccess(reply),
		RequestID: requestIDFrom(r.Context()),
	}
}
